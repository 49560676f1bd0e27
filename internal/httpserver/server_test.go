package httpserver_test

import (
	"time"

	"github.com/jsamuelsen/idaas-m2m-client/internal/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:         0,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
	}
}
