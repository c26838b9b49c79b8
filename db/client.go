package db

import "log"

// Client is anything holding database resources that must be released.
type Client interface {
	Init() error
	Close() error
}

func CloseClient(name string, c Client) {
	if c == nil {
		log.Printf("[INFO] `%s` Nothing to Close", name)
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("[WARN] Failed to Close `%s`: %v", name, err)
	} else {
		log.Printf("[INFO] `%s` Closed", name)
	}
}
