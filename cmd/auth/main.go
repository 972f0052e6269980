package main

import (
	"flag"
	"log"
	"os"

	"github.com/conychips/auth/internal/auth/app"
)

func main() {
	cfg := app.LoadConfig()

	if len(os.Args) > 1 && os.Args[1] == "keygen" {
		keygen(cfg, os.Args[2:])
		return
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// keygen writes a new signing key pair to JWT_PRIVATE_KEY_PATH and
// JWT_PUBLIC_KEY_PATH, encrypting the private key with
// JWT_PRIVATE_KEY_SECRET when it is set.
func keygen(cfg app.Config, args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	bits := fs.Int("bits", 2048, "RSA key size")
	_ = fs.Parse(args)

	if err := app.WriteKeyPair(cfg, *bits); err != nil {
		log.Fatalf("keygen: %v", err)
	}
	log.Printf("wrote %s and %s", cfg.PrivateKeyPath, cfg.PublicKeyPath)
}
