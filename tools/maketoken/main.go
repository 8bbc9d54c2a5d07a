// Command maketoken prints a random hawk key for a walletpass
// authorization, or with -user and -key the hawk Authorization header
// of a request to walletpass.
package main

import (
	"crypto/rand"
	"crypto/sha256"
	"flag"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.mozilla.org/hawk"
)

func main() {
	var (
		user, key, method, url, body, contentType string
	)
	flag.StringVar(&user, "user", "", "hawk id to sign a request for")
	flag.StringVar(&key, "key", "", "hawk key of the user")
	flag.StringVar(&method, "method", http.MethodPost, "method of the request")
	flag.StringVar(&url, "url", "http://localhost:8000/sign/pass", "url of the request")
	flag.StringVar(&body, "body", "", "path to the request body, stdin when -")
	flag.StringVar(&contentType, "content-type", "application/json", "content type of the request")
	flag.Parse()

	if user == "" {
		token, err := randomToken()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("256bits random token: %s\n", token)
		return
	}

	var payload []byte
	switch body {
	case "":
	case "-":
		var err error
		payload, err = io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
	default:
		var err error
		payload, err = os.ReadFile(body)
		if err != nil {
			log.Fatal(err)
		}
	}
	header, err := authHeader(method, url, user, key, contentType, payload)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(header)
}

// randomToken returns 256 random bits in base 36
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	var token string
	for i := 0; i < 32; i += 8 {
		token += strconv.FormatUint(new(big.Int).SetBytes(b[i:i+8]).Uint64(), 36)
	}
	return token, nil
}

func authHeader(method, url, user, key, contentType string, payload []byte) (string, error) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return "", err
	}
	auth := hawk.NewRequestAuth(req,
		&hawk.Credentials{
			ID:   user,
			Key:  key,
			Hash: sha256.New},
		0)
	auth.Ext = fmt.Sprintf("%d", time.Now().Nanosecond())
	payloadhash := auth.PayloadHash(contentType)
	payloadhash.Write(payload)
	auth.SetHash(payloadhash)
	return auth.RequestHeader(), nil
}
