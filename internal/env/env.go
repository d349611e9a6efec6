package env

import (
	"os"
)

const (
	AWSRegion          = "AWS_REGION"
	AWSID              = "AWS_ID"
	AWSSecret          = "AWS_SECRET"
	AWSToken           = "AWS_TOKEN"
	DynamoDBEndpoint   = "DYNAMODB_ENDPOINT"
	UserSecretKey      = "USER_SECRET"
	AuthRedisURL       = "AUTH_REDIS_URL"
	AuthRedisPass      = "AUTH_REDIS_PASS"
	WebUrl             = "WEB_URL"
	ListenAddr         = "LISTEN_ADDR"
	AdminPassword      = "ADMIN_PASSWORD"
	AutoProvisionUsers = "CHAT_AUTO_PROVISION_USERS"
)

// MustValidate panics when a required variable is missing. Called from main
// rather than init so test binaries can import this package freely.
func MustValidate() {
	required := []string{
		AWSRegion,
		AWSID,
		AWSSecret,
		UserSecretKey,
		AuthRedisURL,
		WebUrl,
	}
	for _, key := range required {
		if os.Getenv(key) == "" {
			panic("env: required environment variable not set: " + key)
		}
	}
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
