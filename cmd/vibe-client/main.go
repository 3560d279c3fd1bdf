package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chess10kp/vibe/internal/config"
)

var (
	configPath string
	socketPath string
	pretty     bool
)

var rootCmd = &cobra.Command{
	Use:   "vibe-client <command> [args...]",
	Short: "Send a command to a running vibe instance",
	Long: `Send one command line to the vibe IPC socket and print the reply.

Commands:
  search <text>                    set the search text
  clear                            clear the search
  enter                            launch the single remaining result
  launch <package> [profile]       request a launch
  swipe left|right|up|down         trigger a swipe binding
  longpress                        trigger the long-press binding
  cancel                           cancel a pending delayed launch
  settings show|hide               toggle the settings overlay
  picker <target>|hide             open the app picker for left, right, up,
                                   down, longpress or delayed
  pick <package> [profile]         choose an app in the open picker
  unbind <gesture>                 clear a gesture binding
  autolaunch on|off                toggle auto-launch
  delay <seconds>                  set the countdown length
  delayed add|remove <package> [profile]
  reload                           re-enumerate applications
  state                            print the session state as JSON
  stats [limit]                    print launch statistics as JSON
  home-settings                    open the system launcher settings`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to config file")
	rootCmd.Flags().StringVarP(&socketPath, "socket", "s", "", "Socket path (overrides config and VIBE_SOCKET)")
	rootCmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "Indent JSON replies")
}

func resolveSocket() string {
	if socketPath != "" {
		return socketPath
	}
	if env := os.Getenv("VIBE_SOCKET"); env != "" {
		return env
	}
	if cfg, err := config.LoadConfig(configPath); err == nil && cfg.SocketPath != "" {
		return cfg.SocketPath
	}
	return config.DefaultConfig.SocketPath
}

func run(cmd *cobra.Command, args []string) error {
	reply, err := send(resolveSocket(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if strings.HasPrefix(reply, "error: ") {
		return fmt.Errorf("%s", strings.TrimPrefix(reply, "error: "))
	}

	if pretty && json.Valid([]byte(reply)) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(reply), "", "  "); err == nil {
			reply = buf.String()
		}
	}
	fmt.Println(reply)
	return nil
}

func send(socket, message string) (string, error) {
	conn, err := net.DialTimeout("unix", socket, 2*time.Second)
	if err != nil {
		return "", fmt.Errorf("failed to connect to vibe socket: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	if _, err := fmt.Fprintln(conn, message); err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
