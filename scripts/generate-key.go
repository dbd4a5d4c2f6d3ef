// Package main is a development utility for generating a SECRET_KEY value
// suitable for signing admin session tokens. It prints the key together with
// the environment line to paste into a .env file. Do not reuse generated keys
// across environments — generate one per deployment.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

func main() {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		log.Fatal(err)
	}

	key := hex.EncodeToString(randomBytes)

	fmt.Println("==========================================================")
	fmt.Println("Secret Key Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nSECRET_KEY=%s\n", key)
	fmt.Println("\nAdd the line above to your .env file or export it in the")
	fmt.Println("server environment before starting the catalog.")
	fmt.Println("==========================================================")
}
