package storage

const schema = `
-- The 'col' table is a single-row table holding collection-wide state.
CREATE TABLE IF NOT EXISTS col (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    created INTEGER NOT NULL,
    usn INTEGER NOT NULL DEFAULT 0
);

-- The 'deck_configs' table stores scheduling option groups as JSON blobs;
-- decks reference them by id.
CREATE TABLE IF NOT EXISTS deck_configs (
    id INTEGER PRIMARY KEY,
    config TEXT NOT NULL
);

-- The 'decks' table stores both regular and filtered decks. Deck nesting is
-- encoded in the name with '::' separators. The per-day counters belong to
-- the day in today_stamp.
CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    config_id INTEGER NOT NULL DEFAULT 1,
    filtered INTEGER NOT NULL DEFAULT 0,
    filtered_config TEXT,
    new_today INTEGER NOT NULL DEFAULT 0,
    review_today INTEGER NOT NULL DEFAULT 0,
    learn_today INTEGER NOT NULL DEFAULT 0,
    today_stamp INTEGER NOT NULL DEFAULT 0,
    modified INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(config_id) REFERENCES deck_configs(id)
);

-- The 'sources' table tracks where notes came from, either a local
-- directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    last_scanned DATETIME
);

-- The 'notes' table stores the content side of a flashcard. The hash
-- identifies a note across re-ingestions of its source.
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY,
    hash TEXT NOT NULL UNIQUE,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    source_id INTEGER,
    modified INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- The 'cards' table stores scheduling state. The 'due' column is overloaded
-- by queue: a position for new cards, an epoch second for intra-day
-- learning, a day index otherwise. 'left' packs the step counters as
-- today*1000 + total.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY,
    note_id INTEGER NOT NULL,
    deck_id INTEGER NOT NULL,
    template_ord INTEGER NOT NULL DEFAULT 0,
    type INTEGER NOT NULL DEFAULT 0,
    queue INTEGER NOT NULL DEFAULT 0,
    due INTEGER NOT NULL DEFAULT 0,
    interval INTEGER NOT NULL DEFAULT 0,
    ease_factor INTEGER NOT NULL DEFAULT 0,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    left INTEGER NOT NULL DEFAULT 0,
    original_deck INTEGER NOT NULL DEFAULT 0,
    original_due INTEGER NOT NULL DEFAULT 0,
    flag INTEGER NOT NULL DEFAULT 0,
    modified INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(note_id) REFERENCES notes(id),
    FOREIGN KEY(deck_id) REFERENCES decks(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_deck_queue_due ON cards(deck_id, queue, due);
CREATE INDEX IF NOT EXISTS idx_cards_note ON cards(note_id);

-- The 'revlog' table is the append-only review history. Positive intervals
-- are days, negative ones seconds.
CREATE TABLE IF NOT EXISTS revlog (
    id INTEGER PRIMARY KEY,
    card_id INTEGER NOT NULL,
    usn INTEGER NOT NULL DEFAULT 0,
    button INTEGER NOT NULL,
    interval INTEGER NOT NULL,
    last_interval INTEGER NOT NULL,
    ease_factor INTEGER NOT NULL,
    taken_millis INTEGER NOT NULL,
    kind INTEGER NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id)
);

CREATE INDEX IF NOT EXISTS idx_revlog_card ON revlog(card_id);
`
