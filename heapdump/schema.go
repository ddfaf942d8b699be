package heapdump

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	label       TEXT NOT NULL,
	taken_at    INTEGER NOT NULL,
	gc_count    INTEGER NOT NULL,
	compactions INTEGER NOT NULL,
	total_slots INTEGER NOT NULL,
	live_slots  INTEGER NOT NULL,
	free_slots  INTEGER NOT NULL,
	mem_size    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS objects (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	addr        INTEGER NOT NULL,
	type        TEXT NOT NULL,
	class       TEXT NOT NULL,
	memsize     INTEGER NOT NULL,
	frozen      INTEGER NOT NULL,
	hidden      INTEGER NOT NULL,
	PRIMARY KEY (snapshot_id, addr)
);

CREATE TABLE IF NOT EXISTS refs (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	src         INTEGER NOT NULL,
	dst         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS refs_dst ON refs (snapshot_id, dst);
`
