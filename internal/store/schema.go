package store

const postgresSchema = `
CREATE TABLE IF NOT EXISTS scales (
	id          BIGSERIAL PRIMARY KEY,
	courseid    BIGINT NOT NULL DEFAULT 0,
	userid      BIGINT NOT NULL DEFAULT 0,
	name        TEXT NOT NULL,
	scale       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS competency_frameworks (
	id                 BIGSERIAL PRIMARY KEY,
	idnumber           TEXT NOT NULL UNIQUE,
	shortname          TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	descriptionformat  INTEGER NOT NULL DEFAULT 0,
	scaleid            BIGINT REFERENCES scales(id),
	scaleconfiguration TEXT NOT NULL DEFAULT '',
	taxonomies         TEXT[] NOT NULL DEFAULT '{}',
	contextid          BIGINT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS competencies (
	id                 BIGSERIAL PRIMARY KEY,
	frameworkid        BIGINT NOT NULL REFERENCES competency_frameworks(id) ON DELETE CASCADE,
	parentid           BIGINT REFERENCES competencies(id),
	idnumber           TEXT NOT NULL,
	shortname          TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	descriptionformat  INTEGER NOT NULL DEFAULT 0,
	scaleid            BIGINT REFERENCES scales(id),
	scaleconfiguration TEXT NOT NULL DEFAULT '',
	ruletype           TEXT NOT NULL DEFAULT '',
	ruleoutcome        INTEGER NOT NULL DEFAULT 0,
	ruleconfig         TEXT,
	sortorder          INTEGER NOT NULL DEFAULT 0,
	UNIQUE (frameworkid, idnumber)
);

CREATE TABLE IF NOT EXISTS related_competencies (
	competencyid        BIGINT NOT NULL REFERENCES competencies(id) ON DELETE CASCADE,
	relatedcompetencyid BIGINT NOT NULL REFERENCES competencies(id) ON DELETE CASCADE,
	PRIMARY KEY (competencyid, relatedcompetencyid),
	CHECK (competencyid < relatedcompetencyid)
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scales (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	courseid    INTEGER NOT NULL DEFAULT 0,
	userid      INTEGER NOT NULL DEFAULT 0,
	name        TEXT NOT NULL,
	scale       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS competency_frameworks (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	idnumber           TEXT NOT NULL UNIQUE,
	shortname          TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	descriptionformat  INTEGER NOT NULL DEFAULT 0,
	scaleid            INTEGER REFERENCES scales(id),
	scaleconfiguration TEXT NOT NULL DEFAULT '',
	taxonomies         TEXT NOT NULL DEFAULT '',
	contextid          INTEGER NOT NULL,
	created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS competencies (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	frameworkid        INTEGER NOT NULL REFERENCES competency_frameworks(id) ON DELETE CASCADE,
	parentid           INTEGER REFERENCES competencies(id),
	idnumber           TEXT NOT NULL,
	shortname          TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	descriptionformat  INTEGER NOT NULL DEFAULT 0,
	scaleid            INTEGER REFERENCES scales(id),
	scaleconfiguration TEXT NOT NULL DEFAULT '',
	ruletype           TEXT NOT NULL DEFAULT '',
	ruleoutcome        INTEGER NOT NULL DEFAULT 0,
	ruleconfig         TEXT,
	sortorder          INTEGER NOT NULL DEFAULT 0,
	UNIQUE (frameworkid, idnumber)
);

CREATE TABLE IF NOT EXISTS related_competencies (
	competencyid        INTEGER NOT NULL REFERENCES competencies(id) ON DELETE CASCADE,
	relatedcompetencyid INTEGER NOT NULL REFERENCES competencies(id) ON DELETE CASCADE,
	PRIMARY KEY (competencyid, relatedcompetencyid),
	CHECK (competencyid < relatedcompetencyid)
);
`
