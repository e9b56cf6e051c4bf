package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sigtrail/sigtrail/internal/utils"
	"github.com/sigtrail/sigtrail/pkg/api"
	"github.com/sigtrail/sigtrail/pkg/history"
	"github.com/sigtrail/sigtrail/pkg/metrics"
	"github.com/sigtrail/sigtrail/pkg/session"
)

var errNotLoggedIn = errors.New("no backend address: run `sigtrail login` first or set server.address")

type historyClient = api.Client[history.Snapshot, history.Snapshot]

func openSession() (*session.Store, error) {
	return session.Open(viper.GetString("session.dbpath"))
}

// backendAddress prefers the address stored with the session over the
// configured one.
func backendAddress(auth session.AuthContext) (string, error) {
	addr := auth.Address()
	if addr == "" {
		addr = viper.GetString("server.address")
	}
	if addr == "" {
		return "", errNotLoggedIn
	}
	return normalizeAddress(addr)
}

func normalizeAddress(addr string) (string, error) {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid backend address %q: expected http(s)://host[:port]", addr)
	}
	return addr, nil
}

func resourceURL(address string) string {
	return address + "/" + strings.Trim(viper.GetString("server.resource"), "/")
}

// newHistoryClient builds the client for the signals resource. m may be nil.
func newHistoryClient(auth session.AuthContext, m *metrics.ClientMetrics) (*historyClient, error) {
	addr, err := backendAddress(auth)
	if err != nil {
		return nil, err
	}

	opts := []api.Option{
		api.WithTimeout(viper.GetDuration("client.timeout")),
		api.WithLogger(utils.Log),
		api.WithExpiredHandler(api.ExpiredFunc(reloadConfig)),
		api.WithTrustedHost(),
		api.WithMetrics(m),
	}
	if !viper.GetBool("client.withtoken") {
		opts = append(opts, api.WithoutToken())
	}
	return api.New[history.Snapshot, history.Snapshot](resourceURL(addr), auth, opts...), nil
}

// reloadConfig re-reads the configuration after the session was cleared so
// later calls in the same process start from a clean state.
func reloadConfig(context.Context) {
	utils.Log.Warn("Session expired. Run `sigtrail login` to sign in again.")
	if err := viper.ReadInConfig(); err != nil {
		utils.Log.Debugf("Config reload: %s", err)
	}
}

func displayLocation() *time.Location {
	name := viper.GetString("display.timezone")
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		utils.Log.Warnf("Unknown timezone %q, using local time", name)
		return time.Local
	}
	return loc
}
