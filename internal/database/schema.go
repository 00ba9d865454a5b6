package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Migrate applies the schema for the given driver.  Every statement is
// CREATE ... IF NOT EXISTS so running it on each start is safe.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var schema string
	switch driver {
	case DriverSQLite, "sqlite":
		schema = sqliteSchema
	case DriverMySQL, "":
		schema = mysqlSchema
	default:
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w\n%s", err, stmt)
		}
	}
	return nil
}

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS profiles (
  id           VARCHAR(36)  NOT NULL PRIMARY KEY,
  email        VARCHAR(255) NOT NULL,
  display_name VARCHAR(255) NULL,
  role         ENUM('user','admin','superadmin') NOT NULL DEFAULT 'user',
  created_at   DATETIME NOT NULL,
  UNIQUE KEY uq_profiles_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS otp_codes (
  id          VARCHAR(36)  NOT NULL PRIMARY KEY,
  email       VARCHAR(255) NOT NULL,
  code_hash   VARCHAR(100) NOT NULL,
  expires_at  DATETIME NOT NULL,
  attempts    INT NOT NULL DEFAULT 0,
  consumed_at DATETIME NULL,
  created_at  DATETIME NOT NULL,
  KEY idx_otp_email (email, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS refresh_tokens (
  id         VARCHAR(36) NOT NULL PRIMARY KEY,
  user_id    VARCHAR(36) NOT NULL,
  token_hash CHAR(64)    NOT NULL,
  expires_at DATETIME NOT NULL,
  revoked_at DATETIME NULL,
  created_at DATETIME NOT NULL,
  UNIQUE KEY uq_refresh_hash (token_hash),
  CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS festivals (
  id          VARCHAR(36)  NOT NULL PRIMARY KEY,
  name        VARCHAR(255) NOT NULL,
  description TEXT NULL,
  start_date  DATE NOT NULL,
  end_date    DATE NOT NULL,
  timezone    VARCHAR(64) NOT NULL DEFAULT 'UTC',
  image_url   VARCHAR(1024) NULL,
  website_url VARCHAR(1024) NULL,
  is_public   BOOLEAN NOT NULL DEFAULT FALSE,
  created_by  VARCHAR(36) NULL,
  created_at  DATETIME NOT NULL,
  KEY idx_festivals_start (start_date),
  CONSTRAINT fk_festivals_creator FOREIGN KEY (created_by) REFERENCES profiles(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS bands (
  id              VARCHAR(36)  NOT NULL PRIMARY KEY,
  name            VARCHAR(255) NOT NULL,
  bio             TEXT NULL,
  origin_country  VARCHAR(128) NULL,
  image_url       VARCHAR(1024) NULL,
  website_url     VARCHAR(1024) NULL,
  spotify_url     VARCHAR(1024) NULL,
  apple_music_url VARCHAR(1024) NULL,
  created_at      DATETIME NOT NULL,
  KEY idx_bands_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS stages (
  id          VARCHAR(36)  NOT NULL PRIMARY KEY,
  festival_id VARCHAR(36)  NOT NULL,
  name        VARCHAR(255) NOT NULL,
  created_at  DATETIME NOT NULL,
  UNIQUE KEY uq_stage_name (festival_id, name),
  CONSTRAINT fk_stages_festival FOREIGN KEY (festival_id) REFERENCES festivals(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS shows (
  id            VARCHAR(36) NOT NULL PRIMARY KEY,
  festival_id   VARCHAR(36) NOT NULL,
  band_id       VARCHAR(36) NOT NULL,
  stage_id      VARCHAR(36) NULL,
  start_time    DATETIME NULL,
  end_time      DATETIME NULL,
  is_late_night BOOLEAN NOT NULL DEFAULT FALSE,
  date_tbd      BOOLEAN NOT NULL DEFAULT FALSE,
  time_tbd      BOOLEAN NOT NULL DEFAULT FALSE,
  created_at    DATETIME NOT NULL,
  KEY idx_shows_festival (festival_id, start_time),
  CONSTRAINT fk_shows_festival FOREIGN KEY (festival_id) REFERENCES festivals(id) ON DELETE CASCADE,
  CONSTRAINT fk_shows_band FOREIGN KEY (band_id) REFERENCES bands(id) ON DELETE CASCADE,
  CONSTRAINT fk_shows_stage FOREIGN KEY (stage_id) REFERENCES stages(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS trips (
  id          VARCHAR(36)  NOT NULL PRIMARY KEY,
  name        VARCHAR(255) NOT NULL,
  description TEXT NULL,
  festival_id VARCHAR(36) NULL,
  created_by  VARCHAR(36) NOT NULL,
  created_at  DATETIME NOT NULL,
  CONSTRAINT fk_trips_festival FOREIGN KEY (festival_id) REFERENCES festivals(id) ON DELETE SET NULL,
  CONSTRAINT fk_trips_creator FOREIGN KEY (created_by) REFERENCES profiles(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS trip_members (
  id         VARCHAR(36) NOT NULL PRIMARY KEY,
  trip_id    VARCHAR(36) NOT NULL,
  user_id    VARCHAR(36) NULL,
  email      VARCHAR(255) NULL,
  role       ENUM('admin','member') NOT NULL DEFAULT 'member',
  status     ENUM('pending','accepted') NOT NULL DEFAULT 'pending',
  created_at DATETIME NOT NULL,
  UNIQUE KEY uq_member_user (trip_id, user_id),
  UNIQUE KEY uq_member_email (trip_id, email),
  CONSTRAINT fk_members_trip FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE,
  CONSTRAINT fk_members_user FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS trip_invitations (
  id         VARCHAR(36) NOT NULL PRIMARY KEY,
  trip_id    VARCHAR(36) NOT NULL,
  email      VARCHAR(255) NOT NULL,
  token      CHAR(48) NOT NULL,
  status     ENUM('pending','accepted','revoked') NOT NULL DEFAULT 'pending',
  invited_by VARCHAR(36) NOT NULL,
  created_at DATETIME NOT NULL,
  UNIQUE KEY uq_invitation_token (token),
  CONSTRAINT fk_invitations_trip FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS show_interactions (
  id         VARCHAR(36) NOT NULL PRIMARY KEY,
  trip_id    VARCHAR(36) NOT NULL,
  show_id    VARCHAR(36) NOT NULL,
  user_id    VARCHAR(36) NOT NULL,
  rating     TINYINT NOT NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  UNIQUE KEY uq_interaction (trip_id, show_id, user_id),
  CONSTRAINT chk_rating CHECK (rating BETWEEN 1 AND 10),
  CONSTRAINT fk_interactions_trip FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE,
  CONSTRAINT fk_interactions_show FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE,
  CONSTRAINT fk_interactions_user FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

// sqliteSchema mirrors mysqlSchema.  Column types are declared as DATE,
// DATETIME and BOOLEAN so the driver scans them into time.Time and bool.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
  id           TEXT NOT NULL PRIMARY KEY,
  email        TEXT NOT NULL UNIQUE,
  display_name TEXT NULL,
  role         TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user','admin','superadmin')),
  created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS otp_codes (
  id          TEXT NOT NULL PRIMARY KEY,
  email       TEXT NOT NULL,
  code_hash   TEXT NOT NULL,
  expires_at  DATETIME NOT NULL,
  attempts    INTEGER NOT NULL DEFAULT 0,
  consumed_at DATETIME NULL,
  created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_otp_email ON otp_codes(email, created_at);

CREATE TABLE IF NOT EXISTS refresh_tokens (
  id         TEXT NOT NULL PRIMARY KEY,
  user_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  token_hash TEXT NOT NULL UNIQUE,
  expires_at DATETIME NOT NULL,
  revoked_at DATETIME NULL,
  created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS festivals (
  id          TEXT NOT NULL PRIMARY KEY,
  name        TEXT NOT NULL,
  description TEXT NULL,
  start_date  DATE NOT NULL,
  end_date    DATE NOT NULL,
  timezone    TEXT NOT NULL DEFAULT 'UTC',
  image_url   TEXT NULL,
  website_url TEXT NULL,
  is_public   BOOLEAN NOT NULL DEFAULT 0,
  created_by  TEXT NULL REFERENCES profiles(id) ON DELETE SET NULL,
  created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS bands (
  id              TEXT NOT NULL PRIMARY KEY,
  name            TEXT NOT NULL,
  bio             TEXT NULL,
  origin_country  TEXT NULL,
  image_url       TEXT NULL,
  website_url     TEXT NULL,
  spotify_url     TEXT NULL,
  apple_music_url TEXT NULL,
  created_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS stages (
  id          TEXT NOT NULL PRIMARY KEY,
  festival_id TEXT NOT NULL REFERENCES festivals(id) ON DELETE CASCADE,
  name        TEXT NOT NULL,
  created_at  DATETIME NOT NULL,
  UNIQUE (festival_id, name)
);

CREATE TABLE IF NOT EXISTS shows (
  id            TEXT NOT NULL PRIMARY KEY,
  festival_id   TEXT NOT NULL REFERENCES festivals(id) ON DELETE CASCADE,
  band_id       TEXT NOT NULL REFERENCES bands(id) ON DELETE CASCADE,
  stage_id      TEXT NULL REFERENCES stages(id) ON DELETE SET NULL,
  start_time    DATETIME NULL,
  end_time      DATETIME NULL,
  is_late_night BOOLEAN NOT NULL DEFAULT 0,
  date_tbd      BOOLEAN NOT NULL DEFAULT 0,
  time_tbd      BOOLEAN NOT NULL DEFAULT 0,
  created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
  id          TEXT NOT NULL PRIMARY KEY,
  name        TEXT NOT NULL,
  description TEXT NULL,
  festival_id TEXT NULL REFERENCES festivals(id) ON DELETE SET NULL,
  created_by  TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trip_members (
  id         TEXT NOT NULL PRIMARY KEY,
  trip_id    TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
  user_id    TEXT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  email      TEXT NULL,
  role       TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin','member')),
  status     TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','accepted')),
  created_at DATETIME NOT NULL,
  UNIQUE (trip_id, user_id),
  UNIQUE (trip_id, email)
);

CREATE TABLE IF NOT EXISTS trip_invitations (
  id         TEXT NOT NULL PRIMARY KEY,
  trip_id    TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
  email      TEXT NOT NULL,
  token      TEXT NOT NULL UNIQUE,
  status     TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','accepted','revoked')),
  invited_by TEXT NOT NULL,
  created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS show_interactions (
  id         TEXT NOT NULL PRIMARY KEY,
  trip_id    TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
  show_id    TEXT NOT NULL REFERENCES shows(id) ON DELETE CASCADE,
  user_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 10),
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  UNIQUE (trip_id, show_id, user_id)
)
`
