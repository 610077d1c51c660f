// Package cli implements the interactive command-line client.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/cloudstore/internal/client/api"
	"github.com/dmitrijs2005/cloudstore/internal/client/config"
)

type App struct {
	config *config.Config
	client *api.Client
	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		client: api.NewClient(c.ServerEndpointAddr, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.client.IsLoggedIn()
}

func (a *App) Run(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return "logged in"
	}
	return "logged out"
}
