// Package okrs implements the OKR tools.
package okrs

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hamzaessahbaoui/taskpilot/pkg/backend"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const (
	createOKRMutation = `
mutation CreateOKR($input: CreateOKRInput!) {
    createOKR(input: $input) {
        id
        title
        description
        createdAt
        updatedAt
    }
}`

	listOKRsQuery = `
query ListOKRs {
    listOKRS {
        items {
            id
            title
            description
            createdAt
            updatedAt
        }
    }
}`
)

type Service struct {
	backend backend.Runner
}

func NewService(r backend.Runner) *Service {
	return &Service{backend: r}
}

func (s *Service) ListOKRs(ctx context.Context, _ ListOKRsArgs) (OKRList, error) {
	var out struct {
		ListOKRs struct {
			Items []OKR `json:"items"`
		} `json:"listOKRS"`
	}
	if err := s.backend.Run(ctx, listOKRsQuery, nil, &out); err != nil {
		return OKRList{}, errors.Wrap(err, "list okrs")
	}
	items := out.ListOKRs.Items
	if items == nil {
		items = []OKR{}
	}
	return OKRList{OKRs: items}, nil
}

func (s *Service) CreateOKR(ctx context.Context, args CreateOKRArgs) (OKR, error) {
	var out struct {
		CreateOKR *OKR `json:"createOKR"`
	}
	if err := s.backend.Run(ctx, createOKRMutation, map[string]interface{}{"input": args}, &out); err != nil {
		return OKR{}, errors.Wrap(err, "create okr")
	}
	if out.CreateOKR == nil {
		return OKR{}, errors.New("create okr: backend returned no okr")
	}
	return *out.CreateOKR, nil
}

func (s *Service) Tools() []toolkit.Tool {
	return []toolkit.Tool{
		toolkit.NewTool("list_okrs", "Lists all current OKRs.", s.ListOKRs),
		toolkit.NewTool("create_okr", "Creates a new OKR and sends it to the GraphQL API.", s.CreateOKR),
	}
}
