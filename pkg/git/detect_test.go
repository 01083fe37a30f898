package git_test

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/git"
)

func TestGit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Git Suite")
}

var _ = Describe("RepoRoot", func() {
	It("returns an absolute path", func() {
		root := git.RepoRoot()
		Expect(root).ToNot(BeEmpty())
		Expect(filepath.IsAbs(root)).To(BeTrue())
	})
})

var _ = Describe("RepoName", func() {
	It("returns a non-empty name", func() {
		name := git.RepoName()
		Expect(name).ToNot(BeEmpty())
	})

	It("matches the base of the repo root", func() {
		Expect(git.RepoName()).To(Equal(filepath.Base(git.RepoRoot())))
	})
})
