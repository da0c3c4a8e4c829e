package main

import (
	"flag"

	"chat_fanout_server/internal/app"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults to configs/config_local.toml, configs/config.toml)")
	flag.Parse()

	var p app.Params
	if *configPath != "" {
		p.ConfigPaths = []string{*configPath}
	}

	// Run 阻塞到 SIGINT/SIGTERM，随后按依赖逆序关闭
	app.New(p).Run()
}
