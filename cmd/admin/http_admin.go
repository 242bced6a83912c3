package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	callAdmin("state", http.MethodGet, "/admin/v1/state", 5*time.Second, args)
}

func saveCmd(args []string) {
	callAdmin("save", http.MethodPost, "/admin/v1/save", 10*time.Second, args)
}

// callAdmin hits a loopback admin endpoint of a running server and prints the
// response body; non-2xx exits 1.
func callAdmin(name, method, path string, timeout time.Duration, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	body, status, err := adminRequest(&http.Client{Timeout: timeout}, method, adminURL(*baseURL, path))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(string(body)))
	if status/100 != 2 {
		os.Exit(1)
	}
}

func adminURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

func adminRequest(cl *http.Client, method, u string) ([]byte, int, error) {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := cl.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return b, resp.StatusCode, err
}
