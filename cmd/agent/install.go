package agent

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/ppagent/pkg/config"
)

const systemdUnit = `[Unit]
Description=ppagent miner telemetry agent
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User={{.User}}
ExecStart={{.Exec}} run --config {{.Config}}
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`

const sysvScript = `#!/bin/sh
### BEGIN INIT INFO
# Provides:          ppagent
# Required-Start:    $network $remote_fs
# Required-Stop:     $network $remote_fs
# Default-Start:     2 3 4 5
# Default-Stop:      0 1 6
# Short-Description: ppagent miner telemetry agent
### END INIT INFO

PIDFILE=/var/run/ppagent.pid
DAEMON={{.Exec}}

case "$1" in
  start)
    start-stop-daemon --start --background --make-pidfile --pidfile $PIDFILE \
      --chuid {{.User}} --exec $DAEMON -- run --config {{.Config}}
    ;;
  stop)
    start-stop-daemon --stop --pidfile $PIDFILE --retry 10
    rm -f $PIDFILE
    ;;
  restart)
    $0 stop
    $0 start
    ;;
  *)
    echo "Usage: $0 {start|stop|restart}"
    exit 1
    ;;
esac
exit 0
`

const upstartJob = `description "ppagent miner telemetry agent"

start on (local-filesystems and net-device-up IFACE!=lo)
stop on runlevel [!2345]

respawn
setuid {{.User}}
exec {{.Exec}} run --config {{.Config}}
`

// initSystem 各 init 系统的脚本模板与安装位置
type initSystem struct {
	tmpl string
	path string
	mode os.FileMode
	hint string
}

var initSystems = map[string]initSystem{
	"systemd": {systemdUnit, "/etc/systemd/system/ppagent.service", 0o644,
		"systemctl daemon-reload && systemctl enable --now ppagent"},
	"sysv": {sysvScript, "/etc/init.d/ppagent", 0o751,
		"update-rc.d ppagent defaults && service ppagent start"},
	"upstart": {upstartJob, "/etc/init/ppagent.conf", 0o644,
		"initctl start ppagent"},
}

type installParams struct {
	Exec   string
	Config string
	User   string
}

var (
	installConfigDir string
	installUser      string
	installDryRun    bool
)

var installCmd = &cobra.Command{
	Use:       "install <" + strings.Join(initSystemNames(), "|") + ">",
	Short:     "Install an init script and default config | 安装服务脚本与默认配置",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: initSystemNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		params := installParams{
			Exec:   exe,
			Config: filepath.Join(installConfigDir, "config.json"),
			User:   installUser,
		}
		script, sys, err := renderInitScript(args[0], params)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if installDryRun {
			fmt.Fprintf(out, "# %s\n", sys.path)
			_, err := out.Write(script)
			return err
		}
		if os.Geteuid() != 0 {
			return errors.New("install must be run as root")
		}
		if err := config.EnsureDefaultFile(params.Config); err != nil {
			return err
		}
		if err := os.WriteFile(sys.path, script, sys.mode); err != nil {
			return fmt.Errorf("write %s: %w", sys.path, err)
		}
		fmt.Fprintf(out, "installed %s (config %s)\n", sys.path, params.Config)
		fmt.Fprintf(out, "enable it with: %s\n", sys.hint)
		return nil
	},
}

func init() {
	f := installCmd.Flags()
	f.StringVar(&installConfigDir, "config-dir", "/etc/ppagent",
		"-> Directory for the installed config file | 配置文件目录")
	f.StringVar(&installUser, "user", "root",
		"-> User the service runs as | 服务运行用户")
	f.BoolVar(&installDryRun, "dry-run", false,
		"-> Print the script instead of installing | 仅打印脚本")
}

func initSystemNames() []string {
	names := make([]string, 0, len(initSystems))
	for name := range initSystems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renderInitScript 按 init 系统渲染服务脚本
func renderInitScript(kind string, p installParams) ([]byte, initSystem, error) {
	sys, ok := initSystems[kind]
	if !ok {
		return nil, initSystem{}, fmt.Errorf("unknown init system %q, expected one of %s",
			kind, strings.Join(initSystemNames(), ", "))
	}
	tmpl, err := template.New(kind).Parse(sys.tmpl)
	if err != nil {
		return nil, initSystem{}, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return nil, initSystem{}, fmt.Errorf("render %s script: %w", kind, err)
	}
	return buf.Bytes(), sys, nil
}
