package backends

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	redisbackend "milterpolicy/internal/backends/redis"
	"milterpolicy/internal/ports"
	"milterpolicy/internal/pub"
	"milterpolicy/internal/types"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

const (
	PolicyFileKey = "POLICY_FILE"
	HTTPPortKey   = "HTTP_PORT"

	ReloadTopicKey = "RELOAD_SNS_ARN"
	SNSEndpointKey = "SNS_ENDPOINT"

	CacheUser  = "CACHE_USER"
	CachePass  = "CACHE_PASS"
	CacheTLS   = "CACHE_SSL"
	CacheDBNum = "CACHE_DB_NUM"

	DefaultPolicyFile = "/etc/milterpolicy/policy.yml"
	DefaultHTTPPort   = 8379
)
const AmazonRootCA1PEM = `-----BEGIN CERTIFICATE-----
MIIDQTCCAimgAwIBAgITBmyfz5m/jAo54vB4ikPmljZbyjANBgkqhkiG9w0BAQsF
ADA5MQswCQYDVQQGEwJVUzEPMA0GA1UEChMGQW1hem9uMRkwFwYDVQQDExBBbWF6
b24gUm9vdCBDQSAxMB4XDTE1MDUyNjAwMDAwMFoXDTM4MDExNzAwMDAwMFowOTEL
MAkGA1UEBhMCVVMxDzANBgNVBAoTBkFtYXpvbjEZMBcGA1UEAxMQQW1hem9uIFJv
b3QgQ0EgMTCCASIwDQYJKoZIhvcNAQEBBQADggEPADCCAQoCggEBALJ4gHHKeNXj
ca9HgFB0fW7Y14h29Jlo91ghYPl0hAEvrAIthtOgQ3pOsqTQNroBvo3bSMgHFzZM
9O6II8c+6zf1tRn4SWiw3te5djgdYZ6k/oI2peVKVuRF4fn9tBb6dNqcmzU5L/qw
IFAGbHrQgLKm+a/sRxmPUDgH3KKHOVj4utWp+UhnMJbulHheb4mjUcAwhmahRWa6
VOujw5H5SNz/0egwLX0tdHA114gk957EWW67c4cX8jJGKLhD+rcdqsq08p8kDi1L
93FcXmn/6pUCyziKrlA4b9v7LWIbxcceVOF34GfID5yHI9Y/QCB/IIDEgEw+OyQm
jgSubJrIqg0CAwEAAaNCMEAwDwYDVR0TAQH/BAUwAwEB/zAOBgNVHQ8BAf8EBAMC
AYYwHQYDVR0OBBYEFIQYzIU07LwMlJQuCFmcx7IQTgoIMA0GCSqGSIb3DQEBCwUA
A4IBAQCY8jdaQZChGsV2USggNiMOruYou6r4lK5IpDB/G/wkjUu0yKGX9rbxenDI
U5PMCCjjmCXPI6T53iHTfIUJrU6adTrCC2qJeHZERxhlbI1Bjjt/msv0tadQ1wUs
N+gDS63pYaACbvXy8MWy7Vu33PqUXHeeE6V/Uq2V8viTO96LXFvKWlJbYK8U90vv
o/ufQJVtMVT8QtPHRh8jrdkPSHCa2XV4cdFyQzR1bldZwgJcJmApzyMZFo6IQ6XU
5MsI+yMRQ+hDKXJioaldXgjUkK642M4UwtBV8ob2xJNDd2ZhwLnoQdeXeGADbkpy
rqXRfboQnoZsG4q5WTP468SQvvG5
-----END CERTIFICATE-----`

// PolicyFileFromEnv returns the policy file path, POLICY_FILE or the default.
func PolicyFileFromEnv() string {
	return getenv(PolicyFileKey, DefaultPolicyFile)
}

// HTTPPortFromEnv returns the port of the lookup API.
func HTTPPortFromEnv() (int, error) {
	s := getenv(HTTPPortKey, strconv.Itoa(DefaultHTTPPort))
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, types.Err(types.ErrInvalidPort, err, "%s=%q", HTTPPortKey, s)
	}
	return port, nil
}

// ReloadTopicFromEnv is the SNS topic receiving reload events. Empty disables
// publishing.
func ReloadTopicFromEnv() string {
	return os.Getenv(ReloadTopicKey)
}

// PublisherFromEnv creates the SNS publisher. SNS_ENDPOINT points the client
// at a local emulator with static credentials.
func PublisherFromEnv(ctx context.Context) (ports.Publisher, error) {
	var snsEndpoint *string
	se := os.Getenv(SNSEndpointKey)
	if se != "" {
		snsEndpoint = aws.String(se)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if snsEndpoint != nil {
			// This is used for testing only locally
			o.BaseEndpoint = snsEndpoint
			o.Region = getenv("AWS_REGION", "us-east-1")
			o.Credentials = credentials.NewStaticCredentialsProvider(
				getenv("AWS_ACCESS_KEY_ID", "test"),
				getenv("AWS_SECRET_ACCESS_KEY", "test"),
				"",
			)
		}
	})
	return pub.NewSNS(snsClient), nil
}

// CacheOptionsFromEnv reads the credentials shared by every cache ring. The
// password from the policy file is used when CACHE_PASS is unset.
func CacheOptionsFromEnv(settings types.CacheSettings) (redisbackend.RingOptions, error) {
	opts := redisbackend.RingOptions{
		Username:    os.Getenv(CacheUser),
		Password:    getenv(CachePass, settings.Password),
		DialTimeout: settings.ConnectTimeout,
	}
	dbNumStr := getenv(CacheDBNum, "0")
	dbNum, err := strconv.Atoi(dbNumStr)
	if err != nil {
		return opts, fmt.Errorf("invalid cache DB number: %w", err)
	}
	opts.DB = dbNum

	if parseBoolean(getenv(CacheTLS, "false")) {
		// Create a CA certificate pool and add our CA certificate
		caCerts := x509.NewCertPool()
		if !caCerts.AppendCertsFromPEM([]byte(AmazonRootCA1PEM)) {
			return opts, fmt.Errorf("failed to retrieve CA certificate")
		}
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    caCerts,
		}
	}
	return opts, nil
}

// getenv retrieves the value of the environment variable named by the key.
func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func parseBoolean(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
