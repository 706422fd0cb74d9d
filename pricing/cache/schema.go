package cache

// Schema is applied on every Open; statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS prices (
	source TEXT NOT NULL,
	coin TEXT NOT NULL,
	date TEXT NOT NULL,
	price REAL NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (source, coin, date)
);

CREATE INDEX IF NOT EXISTS idx_prices_fetched_at ON prices(fetched_at);
`
