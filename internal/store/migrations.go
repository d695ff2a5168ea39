package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per finished match
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			player_score INTEGER NOT NULL,
			ai_score INTEGER NOT NULL,
			balls_played INTEGER NOT NULL,
			innings INTEGER NOT NULL,
			result TEXT NOT NULL CHECK(result IN ('player', 'ai', 'draw')),
			finished_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Ball-by-ball log of each match
		`CREATE TABLE IF NOT EXISTS balls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			innings INTEGER NOT NULL,
			player_move INTEGER NOT NULL CHECK(player_move BETWEEN 1 AND 6),
			opponent_move INTEGER NOT NULL CHECK(opponent_move BETWEEN 1 AND 6),
			user_batting INTEGER NOT NULL,
			runs INTEGER NOT NULL,
			is_out INTEGER NOT NULL
		)`,

		// Key-value application settings
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_balls_match_id ON balls(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_finished_at ON matches(finished_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
