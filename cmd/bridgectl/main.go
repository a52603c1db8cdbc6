// bridgectl drives the bridge's local admin endpoints.
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

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bridgectl <pair|state|reload> [-url http://127.0.0.1:8787]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "pair":
		post("/admin/v1/pair", os.Args[2:])
	case "state":
		get("/admin/v1/state", os.Args[2:])
	case "reload":
		post("/admin/v1/reload", os.Args[2:])
	default:
		usage()
	}
}

func baseURL(name string, args []string) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	u := fs.String("url", "http://127.0.0.1:8787", "bridge base url")
	_ = fs.Parse(args)
	return strings.TrimRight(strings.TrimSpace(*u), "/")
}

func get(path string, args []string) {
	u := baseURL(path, args) + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func post(path string, args []string) {
	u := baseURL(path, args) + path
	req, _ := http.NewRequest(http.MethodPost, u, nil)
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
