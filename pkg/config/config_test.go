package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Version).To(Equal(defaults.Version))
			Expect(cfg.API.Listen).To(Equal(defaults.API.Listen))
			Expect(cfg.Client.APITarget).To(Equal(defaults.Client.APITarget))
			Expect(cfg.VectorStore.Provider).To(Equal(defaults.VectorStore.Provider))
			Expect(cfg.Embedding.Provider).To(Equal(defaults.Embedding.Provider))
			Expect(cfg.Embedding.Target).To(Equal(defaults.Embedding.Target))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
			Expect(cfg.Embedding.Dimensions).To(Equal(defaults.Embedding.Dimensions))
			Expect(cfg.Events.Topic).To(Equal(defaults.Events.Topic))
			Expect(cfg.Engine.EnrichWorkers).To(Equal(defaults.Engine.EnrichWorkers))
			Expect(cfg.Engine.MaintainInterval).To(Equal(defaults.Engine.MaintainInterval))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[api]
listen = ":9091"

[embedding]
dimensions = 768
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())
			Expect(cfg.Version).To(Equal(0))
			Expect(cfg.API.Listen).To(Equal(":9091"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("loads all config fields", func() {
			data := `version = 0

[storage]
sqlite_path = "/tmp/engram.sqlite"

[api]
listen = ":9091"

[client]
api_target = "http://myhost:9091"

[vector_store]
provider = "chroma"
target = "http://localhost:8000"

[embedding]
provider = "ollama"
target = "http://localhost:11434"
model = "nomic-embed-text"
dimensions = 1024

[events]
enabled = true
brokers = ["localhost:9092", "localhost:9093"]
topic = "memories"

[engine]
enrich_workers = 4
maintain_interval = "30m"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Version).To(Equal(0))
			Expect(cfg.Storage.SQLitePath).To(Equal("/tmp/engram.sqlite"))
			Expect(cfg.API.Listen).To(Equal(":9091"))
			Expect(cfg.Client.APITarget).To(Equal("http://myhost:9091"))
			Expect(cfg.VectorStore.Provider).To(Equal("chroma"))
			Expect(cfg.VectorStore.Target).To(Equal("http://localhost:8000"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1024)))
			Expect(cfg.Events.Enabled).To(BeTrue())
			Expect(cfg.Events.Brokers).To(Equal([]string{"localhost:9092", "localhost:9093"}))
			Expect(cfg.Events.Topic).To(Equal("memories"))
			Expect(cfg.Engine.EnrichWorkers).To(Equal(4))
			Expect(cfg.Engine.MaintainInterval).To(Equal("30m"))
		})

		It("fills unset fields with defaults", func() {
			data := `[api]
listen = ":7070"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.API.Listen).To(Equal(":7070"))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
			Expect(cfg.Engine.EnrichWorkers).To(Equal(defaults.Engine.EnrichWorkers))
		})

		It("rejects an unsupported version", func() {
			data := `version = 99`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
		})

		It("rejects malformed TOML", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is { not toml"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a config through disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Storage.SQLitePath = "/data/engram.sqlite"
			cfg.Events.Enabled = true
			cfg.Events.Brokers = []string{"localhost:9092"}

			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Storage.SQLitePath).To(Equal("/data/engram.sqlite"))
			Expect(loaded.Events.Enabled).To(BeTrue())
			Expect(loaded.Events.Brokers).To(Equal([]string{"localhost:9092"}))
		})

		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError(ContainSubstring("nil config")))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		It("sets and gets string values", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("api.listen", ":9999")).To(Succeed())

			got, err := c.GetConfigValue("api.listen")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(":9999"))
		})

		It("sets and gets numeric values", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("embedding.dimensions", "1536")).To(Succeed())

			got, err := c.GetConfigValue("embedding.dimensions")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("1536"))
		})

		It("sets and gets broker lists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("events.brokers", "a:9092, b:9092")).To(Succeed())

			got, err := c.GetConfigValue("events.brokers")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("a:9092,b:9092"))
		})

		It("rejects unknown keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("nope.nothing", "x")).To(MatchError(ContainSubstring("unknown config key")))
			_, err = c.GetConfigValue("nope.nothing")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects invalid numeric values", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("embedding.dimensions", "lots")).To(HaveOccurred())
			Expect(c.SetConfigValue("engine.enrich_workers", "0")).To(HaveOccurred())
			Expect(c.SetConfigValue("events.enabled", "perhaps")).To(HaveOccurred())
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every registered key exactly once", func() {
			keys := config.ValidConfigKeys()
			seen := map[string]int{}
			for _, k := range keys {
				seen[k]++
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
			for k, n := range seen {
				Expect(n).To(Equal(1), "duplicate key %s", k)
			}
			Expect(keys).To(ContainElements(
				"storage.sqlite_path",
				"api.listen",
				"events.brokers",
				"engine.maintain_interval",
			))
		})
	})

	Describe("PresetConfig", func() {
		It("returns the ollama preset with embeddings on", func() {
			cfg, err := config.PresetConfig("ollama")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("returns the local preset without an embedder", func() {
			cfg, err := config.PresetConfig("local")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(BeEmpty())
		})

		It("returns the qdrant preset pointing at the gRPC port", func() {
			cfg, err := config.PresetConfig("qdrant")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.VectorStore.Provider).To(Equal("qdrant"))
			Expect(cfg.VectorStore.Target).To(Equal("localhost:6334"))
		})

		It("rejects unknown presets", func() {
			_, err := config.PresetConfig("mystery")
			Expect(err).To(MatchError(ContainSubstring("unknown preset")))
		})

		It("names every supported preset", func() {
			for _, name := range config.ValidPresetNames() {
				_, err := config.PresetConfig(name)
				Expect(err).NotTo(HaveOccurred())
			}
		})
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
		os.Unsetenv("ENGRAM_API_LISTEN")
	})

	It("applies defaults when nothing else is set", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(config.NewDefaultConfig().API.Listen))
	})

	It("reads values from config.toml", func() {
		data := `[api]
listen = ":7070"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":7070"))
	})

	It("lets environment variables override the file", func() {
		data := `[api]
listen = ":7070"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		os.Setenv("ENGRAM_API_LISTEN", ":6060")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":6060"))
	})

	It("lets bound flags override everything", func() {
		os.Setenv("ENGRAM_API_LISTEN", ":6060")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		fs := config.FlagSet{
			config.FlagAPIListen: {
				Name:        "listen",
				ViperKey:    "api.listen",
				Description: "API listen address",
			},
		}

		var listen string
		cmd := &cobra.Command{Use: "test"}
		config.AddStringFlag(cmd, fs, config.FlagAPIListen, &listen)
		Expect(cmd.Flags().Set("listen", ":5050")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagAPIListen})
		Expect(v.GetString("api.listen")).To(Equal(":5050"))
	})
})
