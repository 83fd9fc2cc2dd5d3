package sim

// schemaStatements creates the event-store tables if they do not already
// exist. The ingestion pipeline that originally populates this schema from
// the upstream VCS is out of scope for this simulator, but a runnable
// simulator still needs a schema to open a real SQLite file against.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS SimulationEvent (
		id        INTEGER PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		kind      INTEGER NOT NULL,
		key       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_simulationevent_timestamp ON SimulationEvent(timestamp)`,
	`CREATE TABLE IF NOT EXISTS Pipeline (
		id        INTEGER PRIMARY KEY,
		jobs      TEXT NOT NULL,
		createdAt INTEGER,
		duration  INTEGER NOT NULL DEFAULT 0,
		status    TEXT,
		ref       TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_ref ON Pipeline(ref)`,
	`CREATE TABLE IF NOT EXISTS MergeRequestEvent (
		eventID      INTEGER PRIMARY KEY,
		sourceBranch TEXT NOT NULL,
		status       TEXT NOT NULL,
		action       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS AccessLog (
		id            INTEGER PRIMARY KEY,
		timestamp     INTEGER NOT NULL,
		pipeline      INTEGER NOT NULL,
		isIrrelevant  INTEGER NOT NULL DEFAULT 0,
		isAutomatic   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS JobSizeSample (
		id          INTEGER PRIMARY KEY,
		environment TEXT NOT NULL,
		testSuite   TEXT NOT NULL,
		bytes       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobsizesample_job ON JobSizeSample(environment, testSuite)`,
}
