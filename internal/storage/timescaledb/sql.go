package timescaledb

const createTableSQL = `
CREATE TABLE IF NOT EXISTS people_counts (
	time          TIMESTAMPTZ      NOT NULL,
	hub_timestamp DOUBLE PRECISION NOT NULL,
	sensor_id     TEXT             NOT NULL,
	count         INTEGER          NOT NULL
);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('people_counts', 'time', if_not_exists => TRUE);`
