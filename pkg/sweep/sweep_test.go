package sweep_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/sweep"
)

func TestSweep(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sweep Suite")
}

func userEvent(content string) memory.Event {
	return memory.NewEvent("session-sweep", memory.HookUserPrompt, content)
}

func assistantEvent(content string) memory.Event {
	return memory.NewEvent("session-sweep", memory.HookStop, content)
}

func toolEvent(name, output string) memory.Event {
	e := memory.NewEvent("session-sweep", memory.HookPostToolUse, "")
	e.ToolName = name
	e.ToolOutput = output
	return e
}

func kinds(signals []memory.Signal) []memory.SignalKind {
	out := make([]memory.SignalKind, len(signals))
	for i, s := range signals {
		out[i] = s.Kind
	}
	return out
}

var _ = Describe("Extractor", func() {
	var x *sweep.Extractor

	BeforeEach(func() {
		x = sweep.New(sweep.Config{}, nil)
	})

	It("returns nothing for an empty batch", func() {
		Expect(x.Extract(nil)).To(BeEmpty())
	})

	It("skips events below the length floor", func() {
		Expect(x.Extract([]memory.Event{userEvent("ok thanks")})).To(BeEmpty())
	})

	Context("pattern extraction", func() {
		It("turns a stated preference into a candidate", func() {
			events := []memory.Event{
				userEvent("I prefer tabs over spaces for indentation in this project."),
			}

			candidates := x.Extract(events)
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Classification).To(Equal(memory.ClassPreference))
			Expect(cand.ExtractionMethod).To(Equal(memory.ExtractedByPattern))
			Expect(cand.Confidence).To(Equal(0.75))
			Expect(cand.PreliminaryImportance).To(BeNumerically("~", 0.6, 1e-9))
			Expect(cand.SourceEventIDs).To(Equal([]string{events[0].ID}))
			Expect(cand.Tags).To(ContainElement("preference"))
		})

		It("lets the strongest classifying phrase win and clamps importance", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("Never use the staging bucket, we decided to keep it clean."),
			})
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Classification).To(Equal(memory.ClassConstraint))
			Expect(cand.Signals).To(HaveLen(2))
			Expect(cand.PreliminaryImportance).To(Equal(1.0))
		})

		It("classifies a bare remember request as semantic", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("Remember this: the deploy pipeline needs the VPN connected."),
			})
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Classification).To(Equal(memory.ClassSemantic))
			Expect(kinds(cand.Signals)).To(ContainElement(memory.SignalRemember))
			Expect(cand.PreliminaryImportance).To(BeNumerically("~", 0.9, 1e-9))
		})

		It("ignores low-signal chatter", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("Can you help me sort this list of numbers please?"),
			})
			Expect(candidates).To(BeEmpty())
		})

		It("leaves bare links below the signal floor", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("Check https://pkg.go.dev/github.com/spf13/cobra for the docs first"),
			})
			Expect(candidates).To(BeEmpty())
		})
	})

	Context("flow extraction", func() {
		It("marks a terse push-back after a long assistant turn as learning", func() {
			long := "You should use the standard sort package here because it " +
				"already handles partial ordering, stability, allocation reuse, " +
				"and the small slice insertion threshold, which means the custom " +
				"quicksort in this diff can be deleted without changing behavior at all"

			candidates := x.Extract([]memory.Event{
				assistantEvent(long),
				userEvent("No, that's wrong, use slices.SortFunc instead."),
			})
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Classification).To(Equal(memory.ClassLearning))
			Expect(kinds(cand.Signals)).To(ContainElement(memory.SignalCorrection))
			Expect(cand.Confidence).To(Equal(0.75))
		})

		It("flags the chunk right after failed tool output", func() {
			candidates := x.Extract([]memory.Event{
				toolEvent("docker", "error: connection refused while dialing postgres at 127.0.0.1:5432, permission denied for socket"),
				userEvent("The postgres container was not started on this machine."),
			})
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Classification).To(Equal(memory.ClassBugfix))
			Expect(cand.ExtractionMethod).To(Equal(memory.ExtractedByStructure))
			Expect(cand.Confidence).To(Equal(0.5))
			Expect(kinds(cand.Signals)).To(ContainElement(memory.SignalFollowsErr))
		})

		It("scales structural signals by the configured multiplier", func() {
			damped := sweep.New(sweep.Config{StructuralMultiplier: 0.5}, nil)

			candidates := damped.Extract([]memory.Event{
				toolEvent("docker", "error: connection refused while dialing postgres at 127.0.0.1:5432, permission denied for socket"),
				userEvent("The postgres container was not started on this machine."),
			})
			Expect(candidates).To(BeEmpty())
		})

		It("treats an outsized explanation as procedural", func() {
			long := "The retry policy we rely on has three layers, starting with " +
				"immediate retries for connection drops, then exponential backoff " +
				"with jitter capped at two minutes for transient upstream " +
				"failures, and finally a dead letter queue that pages the on call " +
				"engineer, with the consumer reading all three thresholds from " +
				"the shared config map deployed alongside the service"

			candidates := x.Extract([]memory.Event{
				userEvent("How do I configure the retry policy for the queue consumer?"),
				userEvent("What does the lint warning about shadowed variables mean?"),
				userEvent("Where is the staging deploy script checked in?"),
				userEvent(long),
			})
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Classification).To(Equal(memory.ClassProcedural))
			Expect(cand.ExtractionMethod).To(Equal(memory.ExtractedByStructure))
			Expect(kinds(cand.Signals)).To(ContainElement(memory.SignalElaboration))
		})
	})

	Context("segmentation", func() {
		It("splits labeled transcripts into turns and skips assistant ones", func() {
			transcript := "User: Please stop suggesting jQuery, we dropped it years ago\n" +
				"Assistant: Understood, I will stick with vanilla DOM APIs\n" +
				"User: Good, and remember this: the frontend build must stay dependency free"

			events := []memory.Event{userEvent(transcript)}
			candidates := x.Extract(events)
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Summary).To(Equal("Good, and remember this: the frontend build must stay dependency free"))
			Expect(cand.SourceEventIDs).To(Equal([]string{events[0].ID}))
		})

		It("splits paragraphs and evaluates each on its own", func() {
			content := "We migrated the API to fiber last sprint.\n\n" +
				"Important: the rate limiter config lives in redis now, never edit it by hand."

			candidates := x.Extract([]memory.Event{userEvent(content)})
			Expect(candidates).To(HaveLen(1))
			Expect(candidates[0].Summary).To(Equal("Important: the rate limiter config lives in redis now, never edit it by hand."))
		})
	})

	Context("quality gate", func() {
		It("rejects truncated content even with strong phrases", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("Remember this: always canary the deploy [truncated]"),
			})
			Expect(candidates).To(BeEmpty())
		})

		It("rejects an ellipsis-clipped chunk even with strong phrases", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("Remember this: always use tabs for indentation in this repo..."),
			})
			Expect(candidates).To(BeEmpty())
		})

		It("rejects fenced code dumps", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("```go\nfunc main() { run() }\nfmt.Println(result)\n```"),
			})
			Expect(candidates).To(BeEmpty())
		})

		It("rejects lists of bare file paths", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("src/api/handler.go\nsrc/api/router.go\nsrc/storage/sqlite.go\npkg/memory/unit.go"),
			})
			Expect(candidates).To(BeEmpty())
		})
	})

	Context("tool events", func() {
		It("produces a bugfix candidate when an error and its fix co-occur", func() {
			output := "--- FAIL: TestStore (0.01s)\n" +
				"store_test.go:42: error: dial tcp 127.0.0.1:5432: connection refused\n" +
				"restarted the database container, tests pass, fixed by waiting for the health check"

			events := []memory.Event{toolEvent("go-test", output)}
			candidates := x.Extract(events)
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Classification).To(Equal(memory.ClassBugfix))
			Expect(cand.ExtractionMethod).To(Equal(memory.ExtractedByToolEvent))
			Expect(cand.Confidence).To(Equal(0.75))
			Expect(cand.PreliminaryImportance).To(BeNumerically("~", 0.7, 1e-9))
			Expect(cand.Summary).To(HavePrefix("go-test: "))
			Expect(cand.Summary).To(ContainSubstring("fixed by waiting"))
			Expect(cand.Tags).To(ConsistOf("bugfix", "go-test"))
			Expect(cand.SourceEventIDs).To(Equal([]string{events[0].ID}))
		})

		It("stays quiet when the error never resolves", func() {
			candidates := x.Extract([]memory.Event{
				toolEvent("go-test", "--- FAIL: TestStore (0.01s)\nstore_test.go:42: error: dial tcp: connection refused"),
			})
			Expect(candidates).To(BeEmpty())
		})
	})

	Context("cross-event repetition", func() {
		It("keys on a concept recurring across enough events", func() {
			events := []memory.Event{
				userEvent("The migrations keep failing on the staging cluster."),
				userEvent("We should document how migrations are ordered."),
				userEvent("Running migrations twice corrupted my local schema."),
			}

			candidates := x.Extract(events)
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.ExtractionMethod).To(Equal(memory.ExtractedByRepetition))
			Expect(cand.Classification).To(Equal(memory.ClassSemantic))
			Expect(cand.Summary).To(Equal("We should document how migrations are ordered."))
			Expect(cand.SourceEventIDs).To(HaveLen(3))
			Expect(cand.Tags).To(ContainElement("migrations"))
			Expect(cand.PreliminaryImportance).To(BeNumerically("~", 0.5, 1e-9))
		})

		It("needs three distinct events, not three mentions", func() {
			candidates := x.Extract([]memory.Event{
				userEvent("The migrations failed, so I reran the migrations after fixing the migrations config."),
			})
			Expect(candidates).To(BeEmpty())
		})
	})

	Context("merging", func() {
		It("collapses near-duplicate candidates and unions their provenance", func() {
			events := []memory.Event{
				userEvent("Never commit directly to the main branch in this repo."),
				userEvent("Never commit directly to the main branch in this repo, please."),
			}

			candidates := x.Extract(events)
			Expect(candidates).To(HaveLen(1))

			cand := candidates[0]
			Expect(cand.Classification).To(Equal(memory.ClassConstraint))
			Expect(cand.Summary).To(Equal("Never commit directly to the main branch in this repo."))
			Expect(cand.SourceEventIDs).To(ConsistOf(events[0].ID, events[1].ID))
			Expect(cand.PreliminaryImportance).To(Equal(1.0))
		})
	})
})

var _ = Describe("AcceptQuality", func() {
	It("accepts ordinary prose", func() {
		Expect(sweep.AcceptQuality("Always gate new endpoints behind the feature flag service.")).To(BeTrue())
	})

	It("rejects explicit truncation markers", func() {
		Expect(sweep.AcceptQuality("the handler panics when [truncated]")).To(BeFalse())
	})

	It("rejects a trailing ellipsis regardless of length", func() {
		Expect(sweep.AcceptQuality("I think we should retry...")).To(BeFalse())
		Expect(sweep.AcceptQuality("the config loader reads the file and…")).To(BeFalse())

		long := strings.Repeat("the queue drains slowly under load ", 12) + "and then..."
		Expect(sweep.AcceptQuality(long)).To(BeFalse())
	})

	It("rejects pasted line-numbered dumps", func() {
		dump := "12: func main() {\n13: run(cfg)\n14: }"
		Expect(sweep.AcceptQuality(dump)).To(BeFalse())
	})

	It("rejects symbol-heavy noise", func() {
		Expect(sweep.AcceptQuality("┌──────────┐\n│ build ok │\n└──────────┘")).To(BeFalse())
	})
})
