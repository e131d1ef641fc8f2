// Command simkey generates hex keys for the [snapshot] section of simcore.toml.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/foesim/simcore/internal/crypto"
)

func main() {
	kind := flag.String("kind", "sign", "key kind: sign, exchange or seal")
	flag.Parse()

	if err := generate(*kind); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func generate(kind string) error {
	switch kind {
	case "sign":
		kp, err := crypto.GenerateSigningKey()
		if err != nil {
			return err
		}
		fmt.Printf("sign_key_hex = %q\n", hex.EncodeToString(kp.Private.Seed()))
		fmt.Printf("verify_key_hex = %q\n", hex.EncodeToString(kp.Public))
	case "exchange":
		kp, err := crypto.GenerateExchangeKey()
		if err != nil {
			return err
		}
		fmt.Printf("exchange_key_hex = %q\n", hex.EncodeToString(kp.Private))
		fmt.Printf("# give this to the peer as its peer_public_hex\n")
		fmt.Printf("# %s\n", hex.EncodeToString(kp.Public))
	case "seal":
		key := make([]byte, crypto.KeySize)
		if _, err := rand.Read(key); err != nil {
			return err
		}
		fmt.Printf("seal_key_hex = %q\n", hex.EncodeToString(key))
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	return nil
}
