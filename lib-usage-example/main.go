package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sigtrail/sigtrail/pkg/api"
	"github.com/sigtrail/sigtrail/pkg/history"
	"github.com/sigtrail/sigtrail/pkg/session"
)

func main() {
	// Usage: go run main.go -address "http://127.0.0.1:8080" -token "your_token" -id 1

	addressFlag := flag.String("address", "http://127.0.0.1:8080", "Backend address")
	tokenFlag := flag.String("token", "", "Access token")
	idFlag := flag.String("id", "1", "Signal id")

	// Parse the command-line flags
	flag.Parse()

	if *tokenFlag == "" {
		fmt.Println("Token is required. Please provide the token using -token flag.")
		return
	}

	auth := session.NewMemoryContext(*addressFlag, *tokenFlag)
	client := api.New[history.Snapshot, history.Snapshot](*addressFlag+"/history-signals", auth,
		api.WithTimeout(10*time.Second),
		api.WithExpiredHandler(api.ExpiredFunc(func(context.Context) {
			fmt.Println("Token rejected, session cleared")
		})),
	)

	res := client.Fetch(context.Background(), *idFlag)
	if res.Err != nil {
		fmt.Println(res.Err)
		return
	}

	for _, e := range history.RenderChangelog(history.BuildChangelog(res.Entities), time.Local) {
		fmt.Println(e.Heading, e.Author)
		for _, f := range e.Fields {
			if f.Changed {
				fmt.Printf("  %s: %s\n", f.Label, f.Value)
			}
		}
	}
}
