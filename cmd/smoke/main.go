// Command smoke exercises a running genecompare server end to end against
// the live upstream APIs.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "http://localhost:8080"

	tp53  = "ENSG00000141510"
	brca1 = "ENSG00000012048"
)

var client = &http.Client{Timeout: 3 * time.Minute}

func main() {
	baseURL := os.Getenv("SMOKE_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	fmt.Println("Starting smoke test against", baseURL)

	fmt.Println("1. Health...")
	if _, ok := sendRequest(http.MethodGet, baseURL+"/health", nil); !ok {
		fmt.Println("FAILED: Health")
		os.Exit(1)
	}
	fmt.Println("PASSED: Health")

	fmt.Println("2. Compare TP53 / BRCA1...")
	body, ok := sendRequest(http.MethodPost, baseURL+"/compare", map[string]string{"idA": tp53, "idB": brca1})
	if !ok {
		fmt.Println("FAILED: Compare")
		os.Exit(1)
	}
	symA := gjson.GetBytes(body, "recordA.symbol").String()
	symB := gjson.GetBytes(body, "recordB.symbol").String()
	if symA != "TP53" || symB != "BRCA1" {
		fmt.Printf("FAILED: Compare returned symbols %q / %q\n", symA, symB)
		os.Exit(1)
	}
	fmt.Printf("PASSED: Compare (%d / %d GO terms)\n",
		gjson.GetBytes(body, "recordA.goTerms.#").Int(),
		gjson.GetBytes(body, "recordB.goTerms.#").Int())

	fmt.Println("3. Annotate...")
	body, ok = sendRequest(http.MethodPost, baseURL+"/annotate", map[string][]string{"ids": {tp53, brca1}})
	if !ok {
		fmt.Println("FAILED: Annotate")
		os.Exit(1)
	}
	if n := gjson.GetBytes(body, "annotations.#").Int(); n != 2 {
		fmt.Printf("FAILED: Annotate returned %d annotations\n", n)
		os.Exit(1)
	}
	fmt.Println("PASSED: Annotate")
}

func sendRequest(method, url string, payload any) ([]byte, bool) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return nil, false
	}
	return respBody, true
}
