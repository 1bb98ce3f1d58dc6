package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/hamed0406/urlchecker/internal/dataprovider"
	"github.com/hamed0406/urlchecker/internal/domain"
)

func main() {
	def := os.Getenv("API_BASE")
	if def == "" {
		def = "http://localhost:8080"
	}
	api := pflag.String("api", def, "backend root URL")
	raw := pflag.String("url", "", "URL to monitor (prompted for when empty)")
	frequency := pflag.Int("frequency", 60, "seconds between checks")
	status := pflag.Int("status", http.StatusOK, "expected HTTP status")
	expect := pflag.String("expect", "", "substring expected in the response body")
	emails := pflag.StringSlice("email", nil, "address to notify on failure (repeatable)")
	pflag.Parse()

	if *raw == "" {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Enter a site URL to monitor (e.g., https://example.com): ")
		line, _ := reader.ReadString('\n')
		*raw = line
	}
	target := strings.TrimSpace(*raw)
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		fmt.Println("Invalid URL.")
		os.Exit(1)
	}

	client, err := dataprovider.New(*api, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		fmt.Println("Invalid API base:", err)
		os.Exit(1)
	}
	ctx := context.Background()

	check, err := client.CheckDefinitions().Create(ctx, domain.CheckDefinition{
		URL:            target,
		Frequency:      *frequency,
		ExpectedStatus: *status,
		ExpectedString: *expect,
	})
	if err != nil {
		fmt.Println("API rejected the check:", dataprovider.Message(err))
		os.Exit(1)
	}
	fmt.Printf("Added check %d for %s (every %ds).\n", check.ID, check.URL, check.Frequency)

	for _, e := range *emails {
		a, err := client.NotificationAddresses().Create(ctx, domain.NotificationAddress{CheckID: check.ID, EmailAddress: e})
		if err != nil {
			fmt.Printf("Could not add %s: %s\n", e, dataprovider.Message(err))
			continue
		}
		fmt.Printf("  notifying %s (address %d)\n", a.EmailAddress, a.ID)
	}
}
