package source

import (
	"context"

	"github.com/komsit37/stocksync/pkg/stocksync/dest/excel"
	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// Source loads the group model.
type Source interface {
	Load(ctx context.Context) (types.GroupModel, error)
}

// WorkbookSource reads groups from the local workbook's group sheet.
type WorkbookSource struct {
	Groups *excel.Groups
}

func (s WorkbookSource) Load(ctx context.Context) (types.GroupModel, error) {
	return s.Groups.LoadGroups(ctx)
}
