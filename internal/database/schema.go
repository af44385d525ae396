package database

import (
    "context"
    "database/sql"
)

// schema holds the DDL for the engine's tables. Statements are
// idempotent so EnsureSchema can run on every startup.
//
// occupied_seats is the authoritative seat occupancy map: the
// (show_id, seat_label) primary key guarantees a seat maps to at most
// one booking at any instant, and releasing a seat removes the row
// entirely so the seat is immediately claimable again.
var schema = []string{
    `CREATE TABLE IF NOT EXISTS shows (
        id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        movie_ref   VARCHAR(64)  NOT NULL,
        starts_at   DATETIME     NOT NULL,
        price_cents INT UNSIGNED NOT NULL,
        created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS bookings (
        id           CHAR(36)     NOT NULL,
        user_id      VARCHAR(64)  NOT NULL,
        show_id      BIGINT UNSIGNED NOT NULL,
        amount_cents INT UNSIGNED NOT NULL,
        is_paid      TINYINT(1)   NOT NULL DEFAULT 0,
        created_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_bookings_user (user_id),
        KEY idx_bookings_unpaid (is_paid, created_at)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS booking_seats (
        booking_id CHAR(36)    NOT NULL,
        seq        INT         NOT NULL,
        seat_label VARCHAR(16) NOT NULL,
        PRIMARY KEY (booking_id, seat_label),
        KEY idx_booking_seats_seq (booking_id, seq)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS occupied_seats (
        show_id    BIGINT UNSIGNED NOT NULL,
        seat_label VARCHAR(16) NOT NULL,
        booking_id CHAR(36)    NOT NULL,
        created_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (show_id, seat_label),
        KEY idx_occupied_booking (booking_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
    for _, stmt := range schema {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return err
        }
    }
    return nil
}
