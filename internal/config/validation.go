package config

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration wraps every configuration loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Validate checks field constraints and the cross-field rules that struct
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.API.Sink {
	case "http":
		if c.API.BaseURL == "" {
			return errors.New("api.base_url is required when api.sink is http")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required when api.sink is kafka")
		}
		if c.Kafka.Topic == "" {
			return errors.New("kafka.topic is required when api.sink is kafka")
		}
	}
	return nil
}
