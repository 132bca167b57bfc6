package mainboilerplate

import (
	log "github.com/sirupsen/logrus"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
)

// DBConfig configures the database holding mapped tables.
type DBConfig struct {
	Driver  string `long:"driver" env:"DRIVER" default:"mysql" choice:"mysql" choice:"sqlite3" description:"Database driver"`
	DSN     string `long:"dsn" env:"DSN" description:"Data source name, eg 'user:password@tcp(localhost:3306)/game'"`
	MaxOpen int    `long:"max-open" env:"MAX_OPEN" default:"16" description:"Maximum number of open database connections"`
}

// MustOpen opens and pings the configured database.
func (cfg DBConfig) MustOpen() *sqldb.SQL {
	if cfg.DSN == "" {
		log.Fatal("a database DSN is required (--db.dsn)")
	}
	var db, err = sqldb.Open(cfg.Driver, cfg.DSN)
	Must(err, "failed to open database", "driver", cfg.Driver)

	if cfg.MaxOpen > 0 {
		db.DB.SetMaxOpenConns(cfg.MaxOpen)
		db.DB.SetMaxIdleConns(cfg.MaxOpen)
	}
	log.WithFields(log.Fields{
		"driver":  cfg.Driver,
		"maxOpen": cfg.MaxOpen,
	}).Debug("opened database")

	return db
}
