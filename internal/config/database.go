// internal/config/database.go
package config

import (
	"fmt"
)

// DSN builds the driver connection string. For postgres, lock_timeout is
// passed as a runtime parameter so every pooled connection carries it.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "sqlite":
		return d.Database
	default:
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
		)
		if d.LockTimeout > 0 {
			dsn += fmt.Sprintf(" lock_timeout=%d", d.LockTimeout*1000)
		}
		return dsn
	}
}
