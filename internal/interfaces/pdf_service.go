package interfaces

// PDFService answers structural questions about PDF files locally,
// without a round trip to the extraction service.
type PDFService interface {
	// PageCount returns the number of pages in the PDF at path.
	PageCount(path string) (int, error)
}
