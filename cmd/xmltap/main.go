package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sweeney/callboard/internal/provider"
)

func main() {
	host := flag.String("host", "", "Provider API host")
	user := flag.String("user", "", "API username")
	password := flag.String("password", "", "API password")
	export := flag.String("export", "XmlExport", "Export to fetch (XmlExport, CustomerExport, GetContacts)")
	cursor := flag.String("cursor", "", "LastCallSessionId to fetch from")
	outDir := flag.String("outdir", "testdata/captures", "Output directory for captures")
	sanitize := flag.String("sanitize", "", "Sanitize a capture file in-place (keeps .bak)")
	flag.Parse()

	if *sanitize != "" {
		if err := sanitizeFile(*sanitize); err != nil {
			fmt.Fprintf(os.Stderr, "sanitize error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("sanitized:", *sanitize)
		return
	}

	if *host == "" || *user == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "error: -host, -user and -password are required")
		flag.Usage()
		os.Exit(1)
	}

	client := provider.NewClient(*host, *user, *password, 60*time.Second)
	if err := capture(context.Background(), client, *export, *cursor, *outDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func capture(ctx context.Context, client *provider.Client, export, cursor, outDir string) error {
	params := url.Values{}
	if cursor != "" {
		params.Set("LastCallSessionId", cursor)
	}
	fmt.Printf("fetching %s...\n", export)
	body, err := client.Get(ctx, export, params)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	filename := filepath.Join(outDir, export+"-"+time.Now().Format("20060102-150405")+".xml")
	if err := os.WriteFile(filename, body, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	fmt.Printf("wrote %d bytes to %s\n", len(body), filename)
	return nil
}

var (
	ipPattern    = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	phonePattern = regexp.MustCompile(`\+\d{8,15}`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	namePattern  = regexp.MustCompile(`(?i)(<(?:First|Last)Name>)[^<]*(</)`)
)

// sanitizeBytes masks numbers, addresses and names in an export while
// keeping each distinct number distinct, so sessions still line up.
func sanitizeBytes(data []byte) []byte {
	numbers := make(map[string]string)
	out := phonePattern.ReplaceAllFunc(data, func(n []byte) []byte {
		masked, ok := numbers[string(n)]
		if !ok {
			masked = fmt.Sprintf("+4790%06d", len(numbers)+1)
			numbers[string(n)] = masked
		}
		return []byte(masked)
	})
	out = ipPattern.ReplaceAllFunc(out, func(ip []byte) []byte {
		if string(ip) == "127.0.0.1" {
			return ip
		}
		return []byte("10.0.0.1")
	})
	out = emailPattern.ReplaceAll(out, []byte("user@example.com"))
	out = namePattern.ReplaceAll(out, []byte("${1}Redacted${2}"))
	return out
}

func sanitizeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Create backup
	bakPath := path + ".bak"
	if err := os.WriteFile(bakPath, data, 0o644); err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	return os.WriteFile(path, sanitizeBytes(data), 0o644)
}
