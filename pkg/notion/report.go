package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

// maxFailureBlocks caps how many failed rows are listed on a run page.
// Notion rejects append requests with more than 100 blocks.
const maxFailureBlocks = 50

// BuildRunProperties converts a run record into Notion page properties.
// The database is expected to have matching columns; Notion ignores
// property types it cannot coerce.
func BuildRunProperties(rec *model.RunRecord) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(fmt.Sprintf("Run %s", shortID(rec.ID))),
		},
		"Status": notionapi.StatusProperty{
			Status: notionapi.Status{Name: string(rec.Status)},
		},
		"Input": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(rec.InputPath),
		},
		"Output": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(rec.OutputDir),
		},
		"Companies": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.TotalCompanies),
		},
		"Successful": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.SuccessfulExtractions),
		},
		"Failed": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.FailedExtractions),
		},
		"Facts": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(rec.TotalFactsExtracted),
		},
		"Duration (s)": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: rec.DurationSeconds,
		},
	}

	started := notionapi.Date(rec.StartedAt)
	props["Started"] = notionapi.DateProperty{
		Type: notionapi.PropertyTypeDate,
		Date: &notionapi.DateObject{Start: &started},
	}
	if rec.FinishedAt != nil {
		finished := notionapi.Date(*rec.FinishedAt)
		props["Finished"] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &finished},
		}
	}
	if rec.Error != "" {
		props["Error"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(rec.Error),
		}
	}
	return props
}

// FailureBlocks renders failed rows as a heading plus one bullet per row,
// truncated at maxFailureBlocks.
func FailureBlocks(failures []model.Record) []notionapi.Block {
	if len(failures) == 0 {
		return nil
	}

	blocks := []notionapi.Block{
		notionapi.Heading2Block{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeHeading2,
			},
			Heading2: notionapi.Heading{RichText: richText("Failed extractions")},
		},
	}

	for i, rec := range failures {
		if rec.Failure == nil {
			continue
		}
		if i >= maxFailureBlocks {
			blocks = append(blocks, notionapi.ParagraphBlock{
				BasicBlock: notionapi.BasicBlock{
					Object: notionapi.ObjectTypeBlock,
					Type:   notionapi.BlockTypeParagraph,
				},
				Paragraph: notionapi.Paragraph{
					RichText: richText(fmt.Sprintf("and %d more", len(failures)-maxFailureBlocks)),
				},
			})
			break
		}
		line := fmt.Sprintf("%s (%s): %s", rec.Failure.Company, rec.Failure.Period, rec.Failure.Error)
		blocks = append(blocks, notionapi.BulletedListItemBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeBulletedListItem,
			},
			BulletedListItem: notionapi.ListItem{RichText: richText(line)},
		})
	}
	return blocks
}

// PublishRun creates one page for the run in the given database and, when
// the run had failures, appends them as child blocks. Returns the new
// page's ID.
func PublishRun(ctx context.Context, c Client, dbID string, rec *model.RunRecord, failures []model.Record) (string, error) {
	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: BuildRunProperties(rec),
	})
	if err != nil {
		return "", eris.Wrap(err, "notion: publish run")
	}

	if blocks := FailureBlocks(failures); len(blocks) > 0 {
		_, err = c.AppendBlockChildren(ctx, string(page.ID), &notionapi.AppendBlockChildrenRequest{
			Children: blocks,
		})
		if err != nil {
			return string(page.ID), eris.Wrap(err, "notion: append failure list")
		}
	}
	return string(page.ID), nil
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// shortID returns the first 8 characters of a run id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
