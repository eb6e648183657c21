package aggregates

import (
	"context"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/commonground-backend/internal/data/repos"
	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
)

type SurveyDocumentAggregateDeps struct {
	Base BaseDeps

	Documents repos.SurveyDocumentRepo
}

type surveyDocumentAggregate struct {
	deps SurveyDocumentAggregateDeps
}

func NewSurveyDocumentAggregate(deps SurveyDocumentAggregateDeps) domainagg.SurveyDocumentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &surveyDocumentAggregate{deps: deps}
}

func (a *surveyDocumentAggregate) Contract() domainagg.Contract {
	return domainagg.SurveyDocumentAggregateContract
}

func (a *surveyDocumentAggregate) Publish(ctx context.Context, in domainagg.PublishSurveyInput) (domainagg.PublishSurveyResult, error) {
	const op = "CommonGround.SurveyDocument.Publish"
	var out domainagg.PublishSurveyResult
	version := strings.TrimSpace(in.Version)
	checksum := strings.TrimSpace(in.Checksum)
	if version == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing version", nil)
	}
	if len(in.Document) == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "empty document", nil)
	}
	if checksum == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing checksum", nil)
	}
	if a.deps.Documents == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "survey document repo not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := a.deps.Documents.GetByVersion(dbc, version)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Checksum == checksum {
				out.Created = false
				return nil
			}
			return domainagg.NewError(domainagg.CodeConflict, op, "version "+version+" already published", domainagg.ErrSurveyVersionTaken)
		}
		if err := a.deps.Documents.Create(dbc, &alignment.SurveyDocument{
			Version:     version,
			Title:       strings.TrimSpace(in.Title),
			Document:    datatypes.JSON(in.Document),
			Checksum:    checksum,
			PublishedAt: utcOrNow(in.PublishedAt),
		}); err != nil {
			return err
		}
		out.Created = true
		return nil
	})
	return out, err
}
