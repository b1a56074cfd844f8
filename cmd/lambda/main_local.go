//go:build !lambda

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/events"
)

// Without the lambda tag the handler reads one request body from stdin and
// prints the response, for local runs:
//
//	echo '{"recipe_id":"practice_ingot","character_id":"crafter_90","macro":"basic_synthesis"}' | go run ./cmd/lambda
func main() {
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read stdin:", err)
		os.Exit(1)
	}
	resp, err := handler(context.Background(), events.LambdaFunctionURLRequest{Body: string(body)})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(resp.Body)
	if resp.StatusCode != 200 {
		os.Exit(1)
	}
}
