package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/tubepanel/internal/core"
	"github.com/surge-downloader/tubepanel/internal/engine"
)

var connectCmd = &cobra.Command{
	Use:   "connect [host:port]",
	Short: "Connect the panel to a running tubepanel daemon",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target string
		if len(args) > 0 {
			target = args[0]
		} else if host := resolveHostTarget(); host != "" {
			target = host
		} else {
			// Auto-discovery from local port file
			port := readActivePort()
			if port == 0 {
				return errors.New("no active tubepanel daemon found locally. usage: tubepanel connect <host:port>")
			}
			target = fmt.Sprintf("127.0.0.1:%d", port)
		}

		insecureHTTP, _ := cmd.Flags().GetBool("insecure-http")
		baseURL, err := resolveConnectBaseURL(target, insecureHTTP)
		if err != nil {
			return err
		}
		token, err := resolveTokenForTarget(target)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Connecting to %s...\n", baseURL)

		probe, err := engine.ProbeDaemon(context.Background(), baseURL, token)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		if !probe.Authorized {
			return errors.New("daemon rejected the token")
		}

		return startTUI(core.NewRemoteDownloadService(baseURL, token))
	},
}

func init() {
	connectCmd.Flags().Bool("insecure-http", false, "Allow plain HTTP for non-loopback targets")
	rootCmd.AddCommand(connectCmd)
}

func resolveConnectBaseURL(target string, allowInsecureHTTP bool) (string, error) {
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("invalid target: %v", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported scheme %q (use http or https)", u.Scheme)
		}
		if u.Host == "" {
			return "", errors.New("invalid target: missing host")
		}
		if u.Scheme == "http" && !allowInsecureHTTP && !isLoopbackHost(u.Hostname()) {
			return "", errors.New("refusing insecure HTTP for non-loopback target. use https:// or --insecure-http")
		}
		return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
	}

	scheme := "https"
	if isLoopbackHost(hostnameFromTarget(target)) || allowInsecureHTTP {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, target), nil
}

func hostnameFromTarget(target string) string {
	if strings.Contains(target, "://") {
		if u, err := url.Parse(target); err == nil {
			return u.Hostname()
		}
	}
	host := target
	if h, _, err := net.SplitHostPort(target); err == nil {
		return h
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}

func isLoopbackHost(host string) bool {
	if host == "" {
		return false
	}
	h := strings.ToLower(host)
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
