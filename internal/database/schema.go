package database

// schema is applied in order by Migrate.  Two relationships are worth
// calling out:
//   - tickets has no UNIQUE (event_id, email): one ticket per email and
//     event is enforced by the purchase service under the event row lock.
//   - merch_sales keeps item/drag snapshots and uses ON DELETE SET NULL so
//     deleting a drag or catalog item never erases order history.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('ADMIN','STAFF') NOT NULL DEFAULT 'STAFF',
		is_active     TINYINT(1) NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS events (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name         VARCHAR(200) NOT NULL,
		description  TEXT NOT NULL,
		event_date   DATETIME NOT NULL,
		price_cents  BIGINT NOT NULL DEFAULT 0,
		capacity     INT UNSIGNED NOT NULL DEFAULT 0,
		archived     TINYINT(1) NOT NULL DEFAULT 0,
		tickets_sold INT UNSIGNED NOT NULL DEFAULT 0,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_events_date (event_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tickets (
		ticket_id  VARCHAR(64) NOT NULL PRIMARY KEY,
		event_id   BIGINT UNSIGNED NOT NULL,
		name       VARCHAR(120) NOT NULL,
		surname    VARCHAR(120) NOT NULL,
		email      VARCHAR(255) NOT NULL,
		quantity   INT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL,
		KEY idx_tickets_event_email (event_id, email),
		CONSTRAINT fk_tickets_event FOREIGN KEY (event_id) REFERENCES events (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ticket_redemptions (
		ticket_id    VARCHAR(64) NOT NULL PRIMARY KEY,
		used_count   INT UNSIGNED NOT NULL DEFAULT 0,
		last_used_at DATETIME NULL,
		CONSTRAINT fk_redemptions_ticket FOREIGN KEY (ticket_id) REFERENCES tickets (ticket_id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS drags (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(120) NOT NULL,
		description TEXT NOT NULL,
		instagram   VARCHAR(120) NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS merch_items (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		drag_id     BIGINT UNSIGNED NULL,
		name        VARCHAR(200) NOT NULL,
		price_cents BIGINT NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_merch_items_drag (drag_id),
		CONSTRAINT fk_merch_items_drag FOREIGN KEY (drag_id) REFERENCES drags (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS merch_sales (
		sale_id          VARCHAR(64) NOT NULL PRIMARY KEY,
		item_id          BIGINT UNSIGNED NULL,
		item_name        VARCHAR(200) NOT NULL,
		item_price_cents BIGINT NOT NULL,
		drag_id          BIGINT UNSIGNED NULL,
		drag_name        VARCHAR(120) NOT NULL,
		quantity         INT UNSIGNED NOT NULL,
		buyer_name       VARCHAR(120) NOT NULL,
		buyer_surname    VARCHAR(120) NOT NULL,
		buyer_email      VARCHAR(255) NOT NULL,
		status           ENUM('PENDING','DELIVERED') NOT NULL DEFAULT 'PENDING',
		created_at       DATETIME NOT NULL,
		delivered_at     DATETIME NULL,
		KEY idx_merch_sales_drag (drag_id),
		KEY idx_merch_sales_status (status),
		CONSTRAINT fk_merch_sales_item FOREIGN KEY (item_id) REFERENCES merch_items (id) ON DELETE SET NULL,
		CONSTRAINT fk_merch_sales_drag FOREIGN KEY (drag_id) REFERENCES drags (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
