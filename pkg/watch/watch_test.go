package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
	"github.com/papercomputeco/engram/pkg/sweep"
	"github.com/papercomputeco/engram/pkg/watch"
)

func TestWatch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Watch Suite")
}

const preexistingLine = `{"type":"user","uuid":"old-1","timestamp":"2026-02-01T09:00:00.000Z","sessionId":"sess-old","cwd":"/work/app","message":{"role":"user","content":"Old history that should stay untouched by the live watch."}}` + "\n"

const appendedLines = `{"type":"user","uuid":"new-1","timestamp":"2026-02-01T10:00:00.000Z","sessionId":"sess-live","cwd":"/work/app","message":{"role":"user","content":"I prefer tabs over spaces for indentation in this project."}}
{"type":"user","uuid":"new-2","timestamp":"2026-02-01T10:01:00.000Z","sessionId":"sess-live","cwd":"/work/app","message":{"role":"user","content":"Never commit directly to the main branch, always open a pull request."}}
`

var _ = Describe("Watcher", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		dir    string
		path   string
		storer *inmemory.Driver
		eng    *engine.Engine
		done   chan error
	)

	startWatcher := func() {
		watcher := watch.New(storer, sweep.New(sweep.Config{}, nil), eng, watch.Config{
			Debounce: 20 * time.Millisecond,
		}, zap.NewNop())

		done = make(chan error, 1)
		go func() {
			done <- watcher.Run(ctx, dir)
		}()

		// Give fsnotify a beat to register the directory.
		time.Sleep(50 * time.Millisecond)
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "session.jsonl")

		storer = inmemory.NewDriver()

		var err error
		eng, err = engine.New(engine.Options{
			Storer: storer,
			Logger: zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cancel()
		Eventually(done, time.Second).Should(Receive(MatchError(context.Canceled)))
		Expect(eng.Close()).To(Succeed())
	})

	appendToFile := func(target, content string) {
		f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())
	}

	listActive := func() []memory.Unit {
		units, err := storer.ListUnits(ctx, storage.UnitQuery{Status: memory.StatusActive})
		Expect(err).NotTo(HaveOccurred())
		return units
	}

	It("captures entries appended after startup", func() {
		startWatcher()

		appendToFile(path, appendedLines)

		Eventually(listActive, 2*time.Second, 25*time.Millisecond).ShouldNot(BeEmpty())

		session, err := storer.GetSession(ctx, "sess-live")
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Project).To(Equal("/work/app"))
		Expect(session.MessageWatermark).To(Equal(2))
	})

	It("skips content that existed before the watch began", func() {
		appendToFile(path, preexistingLine)
		startWatcher()

		appendToFile(path, appendedLines)

		Eventually(listActive, 2*time.Second, 25*time.Millisecond).ShouldNot(BeEmpty())

		_, err := storer.GetSession(ctx, "sess-old")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("processes each appended entry exactly once across bursts", func() {
		startWatcher()

		appendToFile(path, appendedLines)
		Eventually(listActive, 2*time.Second, 25*time.Millisecond).ShouldNot(BeEmpty())

		appendToFile(path, `{"type":"user","uuid":"new-3","timestamp":"2026-02-01T10:02:00.000Z","sessionId":"sess-live","cwd":"/work/app","message":{"role":"user","content":"Use make lint before pushing, the CI gate is strict about it."}}`+"\n")

		watermark := func() int {
			session, err := storer.GetSession(ctx, "sess-live")
			if err != nil {
				return 0
			}
			return session.MessageWatermark
		}
		Eventually(watermark, 2*time.Second, 25*time.Millisecond).Should(Equal(3))

		events, err := storer.ListEvents(ctx, "sess-live")
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(3))
	})

	It("picks up transcripts in directories created while watching", func() {
		startWatcher()

		sub := filepath.Join(dir, "project-b")
		Expect(os.Mkdir(sub, 0o755)).To(Succeed())
		time.Sleep(50 * time.Millisecond)

		appendToFile(filepath.Join(sub, "other.jsonl"), appendedLines)

		Eventually(listActive, 2*time.Second, 25*time.Millisecond).ShouldNot(BeEmpty())
	})
})
