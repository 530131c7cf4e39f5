package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/patric-chuzhbe/authsrv/internal/models"
)

func ExampleRouter_GetRoot() {
	server, _, err := setupTestRouter()
	if err != nil {
		panic(err)
	}
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var status models.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Message:", status.Message)

	// Output:
	// Status Code: 200
	// Message: Auth API is running!
}

func ExampleRouter_PostRegister() {
	server, _, err := setupTestRouter()
	if err != nil {
		panic(err)
	}
	defer server.Close()

	body, err := json.Marshal(models.CredentialsRequest{Username: "alice", Password: "pw1"})
	if err != nil {
		panic(err)
	}

	resp, err := http.Post(server.URL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var token models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Token Type:", token.TokenType)
	fmt.Println("Username:", token.Username)

	// Output:
	// Status Code: 201
	// Token Type: bearer
	// Username: alice
}

func ExampleRouter_GetMe() {
	server, tokens, err := setupTestRouter()
	if err != nil {
		panic(err)
	}
	defer server.Close()

	body, err := json.Marshal(models.CredentialsRequest{Username: "bob", Password: "secret"})
	if err != nil {
		panic(err)
	}
	resp, err := http.Post(server.URL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	resp.Body.Close()

	token, err := tokens.Issue("bob")
	if err != nil {
		panic(err)
	}

	req, err := http.NewRequest(http.MethodGet, server.URL+"/auth/me", nil)
	if err != nil {
		panic(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var me models.MeResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Username:", me.Username)

	// Output:
	// Status Code: 200
	// Username: bob
}
