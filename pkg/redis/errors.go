package redis

import "errors"

var (
	// ErrEmptyConnectionURL is returned by Connect when REDIS_URL is blank.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	// ErrFailedToParseRedisConnString wraps redis.ParseURL failures.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	// ErrRedisNotReady is returned when no ping succeeded within the allowed attempts.
	ErrRedisNotReady = errors.New("redis not ready after all connection attempts")
	// ErrHealthcheckFailed wraps the ping error reported by Healthcheck.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
