// Command keygate-client authenticates against a keygate server, or
// generates a key pair to register with one.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/layer-3/keygate/adapters/verifier"
	"github.com/layer-3/keygate/client"
)

type keyPair struct {
	Scheme    string `json:"scheme"`
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
}

func main() {
	url := flag.String("u", "ws://localhost:8080/api/v1/connection", "server websocket URL")
	userID := flag.String("i", "", "user ID to authenticate as")
	secret := flag.String("k", "", "0x-prefixed hex secret key")
	scheme := flag.String("s", verifier.SchemeEd25519, "signature scheme (ed25519, secp256k1)")
	generate := flag.Bool("gen", false, "generate a key pair and exit")
	timeout := flag.Duration("t", 10*time.Second, "overall timeout")
	flag.Parse()

	if err := run(*url, *userID, *secret, *scheme, *generate, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(url, userID, secret, scheme string, generate bool, timeout time.Duration) error {
	if generate {
		return generateKeyPair(scheme)
	}

	if userID == "" || secret == "" {
		return errors.New("-i and -k are required")
	}

	key, err := hexutil.Decode(secret)
	if err != nil {
		return fmt.Errorf("invalid secret key: %w", err)
	}
	signer, err := newSigner(scheme, key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, err := client.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.Authenticate(ctx, userID, signer)
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(map[string]interface{}{
		"user": map[string]string{
			"id":        result.User.ID,
			"email":     result.User.Email,
			"publicKey": hexutil.Encode(result.User.PublicKey),
		},
		"token": result.Token,
	})
}

func newSigner(scheme string, key []byte) (client.Signer, error) {
	switch scheme {
	case verifier.SchemeEd25519:
		return client.NewEd25519Signer(key)
	case verifier.SchemeSecp256k1:
		return client.NewSecp256k1Signer(key)
	default:
		return nil, fmt.Errorf("unknown signature scheme %q", scheme)
	}
}

func generateKeyPair(scheme string) error {
	var kp keyPair
	switch scheme {
	case verifier.SchemeEd25519:
		s, err := client.GenerateEd25519Signer()
		if err != nil {
			return err
		}
		kp = keyPair{Scheme: scheme, PublicKey: hexutil.Encode(s.PublicKey()), SecretKey: hexutil.Encode(s.SecretKey())}
	case verifier.SchemeSecp256k1:
		s, err := client.GenerateSecp256k1Signer()
		if err != nil {
			return err
		}
		kp = keyPair{Scheme: scheme, PublicKey: hexutil.Encode(s.PublicKey()), SecretKey: hexutil.Encode(s.SecretKey())}
	default:
		return fmt.Errorf("unknown signature scheme %q", scheme)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(kp)
}
