// Package main is a utility for generating bcrypt hashes of admin passwords.
// The catalog stores only bcrypt hashes of admin credentials — never the raw
// passwords — so this tool is used when manually bootstrapping or repairing
// admin_users rows in the database without running the full server. Running
// it locally produces a hash that can be inserted directly into the
// admin_users table.
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <password>", os.Args[0])
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), 12)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(hash))
}
