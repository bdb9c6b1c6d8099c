package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/dropwire/dropwire/adapters/browserid"
	"github.com/dropwire/dropwire/adapters/events"
	"github.com/dropwire/dropwire/adapters/jose"
	"github.com/dropwire/dropwire/adapters/store"
	"github.com/dropwire/dropwire/challenge"
	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/service"
	"github.com/dropwire/dropwire/transport/http"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Generate a server root key (you would normally load this from
	// somewhere secure, so the self-ident blob stays stable across
	// restarts).
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate server key: %v", err)
	}

	serverName := os.Getenv("SERVER_NAME")
	if serverName == "" {
		serverName = "dropwire"
	}

	// Mint this server's published self-identity document.
	signer := jose.NewSigner(privateKey)
	selfIdentBlob, err := signer.SignSelfIdent(&core.SelfIdentPayload{
		Poco: core.PortableContact{DisplayName: serverName},
	})
	if err != nil {
		log.Fatalf("Failed to sign server self-ident: %v", err)
	}

	// Get Redis URL from environment
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	// Challenge catalog: open signup by default; set OPEN_SIGNUP=false to
	// require the browserid e-mail assertion.
	catalogKinds := []core.ChallengeKind{core.ChallengeNone, core.ChallengeBrowserID}
	if os.Getenv("OPEN_SIGNUP") == "false" {
		catalogKinds = []core.ChallengeKind{core.ChallengeBrowserID}
	}

	chains := browserid.NewChainVerifier(rootResolverFromEnv())
	browserID := challenge.NewBrowserIDVerifier(chains, nil, logger)
	authenticator, err := challenge.NewAuthenticator(core.NewCatalog(catalogKinds...), logger, browserID)
	if err != nil {
		log.Fatalf("Failed to build challenge gate: %v", err)
	}

	cfg := service.Config{
		ServerName:    serverName,
		SelfIdentBlob: selfIdentBlob,
	}

	accountStore := store.NewRedisAccountStore(redisClient)
	eventPub := events.NewWatermillPublisher(publisher)

	signupService := service.NewSignupService(cfg, accountStore, eventPub, jose.NewVerifier(), authenticator, logger)
	phonebookService := service.NewPhonebookService(accountStore, logger)

	router, err := http.SetupRouter(cfg, signupService, phonebookService, logger)
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":9000"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

var errUntrustedIssuer = errors.New("issuer is not trusted")

// rootResolverFromEnv trusts the single browserid issuer configured via
// BROWSERID_ISSUER and BROWSERID_ROOT_KEY; with no configuration, no issuer
// is trusted and browserid responses fail closed.
func rootResolverFromEnv() browserid.RootResolver {
	issuer := os.Getenv("BROWSERID_ISSUER")
	encodedKey := os.Getenv("BROWSERID_ROOT_KEY")
	return func(name string) (ed25519.PublicKey, error) {
		if issuer == "" || name != issuer {
			return nil, errUntrustedIssuer
		}
		return jose.DecodeKey(encodedKey)
	}
}
