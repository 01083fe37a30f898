package chroma_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/vector/chroma"
)

func TestChroma(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chroma Suite")
}

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// fakeChroma implements just enough of the Chroma v2 REST API to exercise
// the driver: one collection, exact L2 distances.
type fakeChroma struct {
	mu          sync.Mutex
	exists      bool
	createCalls int
	ids         []string
	embeddings  map[string][]float32
	scopes      map[string]string
}

func newFakeChroma(collectionExists bool) (*fakeChroma, *httptest.Server) {
	f := &fakeChroma{
		exists:     collectionExists,
		embeddings: make(map[string][]float32),
		scopes:     make(map[string]string),
	}
	return f, httptest.NewServer(f)
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == collectionsPath+"/engram":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "engram"})

	case r.Method == http.MethodPost && r.URL.Path == collectionsPath:
		f.exists = true
		f.createCalls++
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "engram"})

	case r.Method == http.MethodPost && r.URL.Path == collectionsPath+"/col-1/add":
		var req struct {
			IDs        []string         `json:"ids"`
			Embeddings [][]float32      `json:"embeddings"`
			Metadatas  []map[string]any `json:"metadatas"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for i, id := range req.IDs {
			if _, seen := f.embeddings[id]; !seen {
				f.ids = append(f.ids, id)
			}
			f.embeddings[id] = req.Embeddings[i]
			if i < len(req.Metadatas) {
				if scope, ok := req.Metadatas[i]["scope"].(string); ok {
					f.scopes[id] = scope
				}
			}
		}
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodPost && r.URL.Path == collectionsPath+"/col-1/query":
		var req struct {
			QueryEmbeddings [][]float32 `json:"query_embeddings"`
			NResults        int         `json:"n_results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		query := req.QueryEmbeddings[0]

		type hit struct {
			id       string
			distance float32
		}
		hits := make([]hit, 0, len(f.ids))
		for _, id := range f.ids {
			var d float32
			for i, v := range f.embeddings[id] {
				diff := v - query[i]
				d += diff * diff
			}
			hits = append(hits, hit{id: id, distance: d})
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
		if len(hits) > req.NResults {
			hits = hits[:req.NResults]
		}

		ids := make([]string, len(hits))
		distances := make([]float32, len(hits))
		metadatas := make([]map[string]any, len(hits))
		embeddings := make([][]float32, len(hits))
		for i, h := range hits {
			ids[i] = h.id
			distances[i] = h.distance
			metadatas[i] = map[string]any{"scope": f.scopes[h.id]}
			embeddings[i] = f.embeddings[h.id]
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ids":        [][]string{ids},
			"distances":  [][]float32{distances},
			"metadatas":  [][]map[string]any{metadatas},
			"embeddings": [][][]float32{embeddings},
		})

	case r.Method == http.MethodPost && r.URL.Path == collectionsPath+"/col-1/get":
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		requested := make(map[string]bool, len(req.IDs))
		for _, id := range req.IDs {
			requested[id] = true
		}
		var ids []string
		var metadatas []map[string]any
		var embeddings [][]float32
		for _, id := range f.ids {
			if !requested[id] {
				continue
			}
			ids = append(ids, id)
			metadatas = append(metadatas, map[string]any{"scope": f.scopes[id]})
			embeddings = append(embeddings, f.embeddings[id])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ids":        ids,
			"metadatas":  metadatas,
			"embeddings": embeddings,
		})

	case r.Method == http.MethodPost && r.URL.Path == collectionsPath+"/col-1/delete":
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, id := range req.IDs {
			delete(f.embeddings, id)
			delete(f.scopes, id)
		}
		kept := f.ids[:0]
		for _, id := range f.ids {
			if _, ok := f.embeddings[id]; ok {
				kept = append(kept, id)
			}
		}
		f.ids = kept
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

var _ = Describe("ChromaDriver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewChromaDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewChromaDriver(chroma.Config{}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should connect to an existing collection", func() {
			fake, ts := newFakeChroma(true)
			defer ts.Close()

			driver, err := chroma.NewChromaDriver(chroma.Config{URL: ts.URL}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(fake.createCalls).To(Equal(0))
		})

		It("should create the collection when it does not exist", func() {
			fake, ts := newFakeChroma(false)
			defer ts.Close()

			driver, err := chroma.NewChromaDriver(chroma.Config{URL: ts.URL}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(fake.createCalls).To(Equal(1))
		})

		It("should return an error when the server is unreachable", func() {
			_, err := chroma.NewChromaDriver(chroma.Config{URL: "http://127.0.0.1:1"}, logger)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.ChromaDriver)(nil)
		})
	})

	Describe("with a connected driver", func() {
		var (
			ts     *httptest.Server
			driver *chroma.ChromaDriver
		)

		BeforeEach(func() {
			_, ts = newFakeChroma(true)

			var err error
			driver, err = chroma.NewChromaDriver(chroma.Config{URL: ts.URL}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
			ts.Close()
		})

		addFixtures := func() {
			docs := []vector.Document{
				{ID: "unit-1", Scope: "/repo/alpha", Embedding: []float32{0.1, 0.1}},
				{ID: "unit-2", Scope: "/repo/beta", Embedding: []float32{0.2, 0.2}},
				{ID: "unit-3", Scope: "", Embedding: []float32{0.9, 0.9}},
			}
			Expect(driver.Add(context.Background(), docs)).To(Succeed())
		}

		Describe("Add", func() {
			It("should do nothing when given empty docs", func() {
				Expect(driver.Add(context.Background(), nil)).To(Succeed())
			})

			It("should store documents with scope metadata", func() {
				addFixtures()

				docs, err := driver.Get(context.Background(), []string{"unit-1", "unit-2"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(2))
				Expect(docs[0].ID).To(Equal("unit-1"))
				Expect(docs[0].Scope).To(Equal("/repo/alpha"))
				Expect(docs[1].Scope).To(Equal("/repo/beta"))
			})
		})

		Describe("Query", func() {
			BeforeEach(addFixtures)

			It("should return the closest document first", func() {
				results, err := driver.Query(context.Background(), []float32{0.1, 0.1}, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(3))
				Expect(results[0].ID).To(Equal("unit-1"))
				Expect(results[0].Scope).To(Equal("/repo/alpha"))
			})

			It("should score an exact match as 1.0", func() {
				results, err := driver.Query(context.Background(), []float32{0.1, 0.1}, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].Score).To(BeNumerically("~", 1.0, 0.001))
			})

			It("should respect topK", func() {
				results, err := driver.Query(context.Background(), []float32{0.1, 0.1}, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
			})

			It("should return scores in descending order", func() {
				results, err := driver.Query(context.Background(), []float32{0.1, 0.1}, 3)
				Expect(err).NotTo(HaveOccurred())
				for i := 1; i < len(results); i++ {
					Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
				}
			})
		})

		Describe("Get", func() {
			BeforeEach(addFixtures)

			It("should return nil for empty IDs", func() {
				docs, err := driver.Get(context.Background(), nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(BeNil())
			})

			It("should skip non-existent IDs", func() {
				docs, err := driver.Get(context.Background(), []string{"unit-1", "missing"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].ID).To(Equal("unit-1"))
			})

			It("should include embeddings", func() {
				docs, err := driver.Get(context.Background(), []string{"unit-3"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].Embedding).To(HaveLen(2))
				Expect(docs[0].Embedding[0]).To(BeNumerically("~", 0.9, 0.001))
			})
		})

		Describe("Delete", func() {
			BeforeEach(addFixtures)

			It("should do nothing when given empty IDs", func() {
				Expect(driver.Delete(context.Background(), nil)).To(Succeed())
			})

			It("should delete documents by IDs", func() {
				Expect(driver.Delete(context.Background(), []string{"unit-1"})).To(Succeed())

				docs, err := driver.Get(context.Background(), []string{"unit-1", "unit-2", "unit-3"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(2))
			})
		})
	})
})
