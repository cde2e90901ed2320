package ticket

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalDocuments", func() {
	var (
		tmpDir    string
		documents *LocalDocuments
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		documents, err = NewLocalDocuments(
			filepath.Join(tmpDir, "inbox"),
			filepath.Join(tmpDir, "processed"),
			filepath.Join(tmpDir, "error"),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	write := func(name string) string {
		path := filepath.Join(tmpDir, "inbox", name)
		Expect(os.WriteFile(path, []byte("%PDF-fake"), 0644)).To(Succeed())
		return path
	}

	Describe("ListInbox", func() {
		It("should list only PDF files, sorted", func() {
			write("b.pdf")
			write("a.PDF")
			write("notes.txt")

			paths, err := documents.ListInbox()
			Expect(err).NotTo(HaveOccurred())
			Expect(paths).To(Equal([]string{
				filepath.Join(tmpDir, "inbox", "a.PDF"),
				filepath.Join(tmpDir, "inbox", "b.pdf"),
			}))
		})

		It("should return an empty list for an empty inbox", func() {
			paths, err := documents.ListInbox()
			Expect(err).NotTo(HaveOccurred())
			Expect(paths).To(BeEmpty())
		})
	})

	Describe("Read", func() {
		It("should return the file contents", func() {
			path := write("ticket.pdf")
			data, err := documents.Read(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-fake"))
		})

		It("returns the error for a missing file", func() {
			_, err := documents.Read(filepath.Join(tmpDir, "inbox", "nope.pdf"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MoveToProcessed", func() {
		It("should move the file out of the inbox", func() {
			path := write("ticket.pdf")
			Expect(documents.MoveToProcessed(path)).To(Succeed())
			Expect(path).NotTo(BeAnExistingFile())
			Expect(filepath.Join(tmpDir, "processed", "ticket.pdf")).To(BeAnExistingFile())
		})
	})

	Describe("MoveToError", func() {
		It("should file the document for manual review", func() {
			path := write("garbled.pdf")
			Expect(documents.MoveToError(path)).To(Succeed())
			Expect(filepath.Join(tmpDir, "error", "garbled.pdf")).To(BeAnExistingFile())
		})
	})
})
