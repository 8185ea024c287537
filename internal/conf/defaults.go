package conf

import "github.com/spf13/viper"

// setDefaultConfig sets the default configuration values. The site list
// mirrors the deployed stations; a config.yaml can replace it entirely.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("outputdir", "./site")
	viper.SetDefault("datadir", "./data")

	// Interface prefixes available in DNS for each station host, in probe
	// priority order. Wired before wireless, IPv4 before IPv6.
	viper.SetDefault("interfaces", []string{
		"ipv4.eth0",
		"ipv6.eth0",
		"ipv4.wlan0",
		"ipv6.wlan0",
	})

	viper.SetDefault("sites", []map[string]any{
		{
			"name": "Welland Front",
			"slug": "welland-front",
			"host": "rpi-birds-welland-front.welland.mithis.com",
		},
		{
			"name": "Welland Back",
			"slug": "welland-back",
			"host": "rpi-birds-welland-back.welland.mithis.com",
		},
		{
			"name": "Monarto",
			"slug": "monarto",
			"host": "rpi-birds-monarto.monarto.mithis.com",
		},
	})

	viper.SetDefault("dashboard.title", "BirdNET-Pi Dashboard")
	viper.SetDefault("dashboard.refreshseconds", 300)
	viper.SetDefault("dashboard.displaylimit", 20)

	viper.SetDefault("scraper.fetchlimit", 200)
	viper.SetDefault("scraper.timeoutseconds", 5)

	viper.SetDefault("probe.timeoutseconds", 3)

	viper.SetDefault("tracker.recentwindowdays", 7)
}
