package sqldb

type Conf struct {
	Type string `json:"type"` // mysql, pgsql, mssql, oracle, sqlite
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	PW   string `json:"pw"`
	DB   string `json:"db"`
	TZ   string `json:"tz"`  // Connection Timezone
	DSN  string `json:"dsn"` // To Overwrite Default DSN

	Scheme string `json:"scheme"` // Session default schema (oracle)
}

// WithDefaults returns a copy of c whose empty connection fields are taken from d.
// Type, PW, TZ, DSN and Scheme are never defaulted.
func (c Conf) WithDefaults(d Conf) Conf {
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.User == "" {
		c.User = d.User
	}
	if c.DB == "" {
		c.DB = d.DB
	}
	return c
}

// Redacted hides the password for logging.
func (c Conf) Redacted() Conf {
	if c.PW != "" {
		c.PW = "****"
	}
	return c
}
