package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
)

// Service reads structural PDF metadata off the local disk. Text and
// document metadata come from the extraction service; this only covers
// what can be answered without a remote call.
type Service struct {
	logger arbor.ILogger
}

func NewService(logger arbor.ILogger) interfaces.PDFService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		logger: logger,
	}
}

// PageCount returns the number of pages in the PDF at path. Encrypted or
// damaged files return an error; callers treat the count as best-effort.
func (s *Service) PageCount(path string) (int, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count of %s: %w", path, err)
	}
	return count, nil
}
