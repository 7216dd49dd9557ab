package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	baseURL = "http://localhost:8080"
)

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	pageID := os.Getenv("TEST_PAGE_ID")
	if pageID == "" {
		pageID = "123456"
	}

	// 1. Process a single page
	fmt.Println("1. Processing page...")
	if !sendRequest("POST", "/pages/"+pageID+"/process", nil) {
		fmt.Println("FAILED: Process page")
		os.Exit(1)
	}
	fmt.Println("PASSED: Process page")

	// 2. Read back the Markdown rendering
	fmt.Println("2. Reading Markdown...")
	if !sendRequest("GET", "/pages/"+pageID+"/markdown", nil) {
		fmt.Println("FAILED: Read markdown")
		os.Exit(1)
	}
	fmt.Println("PASSED: Read markdown")

	// 3. Read back the link graph
	fmt.Println("3. Reading Links...")
	if !sendRequest("GET", "/pages/"+pageID+"/links", nil) {
		fmt.Println("FAILED: Read links")
		os.Exit(1)
	}
	fmt.Println("PASSED: Read links")

	// 4. Batch over the same page
	fmt.Println("4. Running Batch...")
	payload := map[string]interface{}{
		"page_ids": []string{pageID},
	}
	if !sendRequest("POST", "/batch", payload) {
		fmt.Println("FAILED: Batch")
		os.Exit(1)
	}
	fmt.Println("PASSED: Batch")
}

func sendRequest(method, endpoint string, payload interface{}) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response: %s\n", string(respBody))

	return true
}
