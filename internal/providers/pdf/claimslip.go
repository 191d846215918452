package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type MarotoProvider struct {
	barangayName string
	cityProvince string
}

func New(barangayName, cityProvince string) Provider {
	return &MarotoProvider{barangayName: barangayName, cityProvince: cityProvince}
}

func (p *MarotoProvider) GenerateClaimSlip(ctx context.Context, data ClaimSlipData) (io.Reader, error) {
	cfg := config.NewBuilder().Build()
	m := maroto.New(cfg)

	m.AddRow(8,
		text.NewCol(12, p.barangayName, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)
	m.AddRow(6,
		text.NewCol(12, p.cityProvince, props.Text{
			Size:  10,
			Align: align.Center,
		}),
	)

	m.AddRow(4, line.NewCol(12))

	m.AddRow(14,
		text.NewCol(12, "CLAIM SLIP", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Center,
			Top:   4,
		}),
	)

	m.AddRow(20,
		col.New(4).Add(
			text.New("Control number", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New("Document", props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New("Claimed by", props.Text{Style: fontstyle.Bold, Size: 10, Top: 12}),
		),
		col.New(8).Add(
			text.New(data.ControlNumber, props.Text{Size: 10}),
			text.New(data.DocumentName, props.Text{Size: 10, Top: 6}),
			text.New(data.ResidentName, props.Text{Size: 10, Top: 12}),
		),
	)

	m.AddRow(14,
		col.New(4).Add(
			text.New("Released by", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New("Date claimed", props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
		),
		col.New(8).Add(
			text.New(data.ReleasedBy, props.Text{Size: 10}),
			text.New(data.ClaimDate, props.Text{Size: 10, Top: 6}),
		),
	)

	m.AddRow(20, col.New(12))

	m.AddRow(10,
		col.New(6),
		col.New(6).Add(
			text.New("_______________________", props.Text{Align: align.Center}),
			text.New("Claimant signature", props.Text{Size: 8, Align: align.Center, Top: 5}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
