// Package pdf renders land use certificates, either as HTML converted by
// Gotenberg or locally with maroto/v2 when no Gotenberg instance is configured.
package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ── Colour palette ──────────────────────────────────────────────────────

var (
	colorPrimary   = &props.Color{Red: 17, Green: 24, Blue: 39}    // near-black
	colorSecondary = &props.Color{Red: 107, Green: 114, Blue: 128} // gray-500
	colorAccent    = &props.Color{Red: 30, Green: 58, Blue: 138}   // blue-900
	colorBorder    = &props.Color{Red: 226, Green: 232, Blue: 240} // slate-200
)

// GenerateCertificatePDF creates the certificate document locally.
func GenerateCertificatePDF(data CertificatePDFData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(18).
		WithTopMargin(16).
		WithRightMargin(18).
		Build()

	m := maroto.New(cfg)

	// 1. Letterhead
	m.AddRows(buildLetterhead(data)...)
	m.AddRows(row.New(1).WithStyle(&props.Cell{
		BorderType:  border.Bottom,
		BorderColor: colorBorder,
	}))
	m.AddRows(row.New(8)) // spacer

	// 2. Title + number
	m.AddRows(buildTitle(data)...)
	m.AddRows(row.New(6))

	// 3. Certification statement
	m.AddRows(buildStatement(data)...)
	m.AddRows(row.New(4))

	// 4. Project details
	m.AddRows(buildDetailsTable(data)...)
	m.AddRows(row.New(6))

	// 5. Validity
	m.AddRows(row.New(8).Add(
		col.New(12).Add(text.New(
			fmt.Sprintf("Issued on %s and valid until %s.", data.IssuedOn, data.ValidUntil),
			props.Text{Size: 10, Color: colorPrimary},
		)),
	))
	m.AddRows(row.New(16))

	// 6. QR + signatory
	m.AddRows(buildSignatureBlock(data)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

func buildLetterhead(data CertificatePDFData) []core.Row {
	return []core.Row{
		row.New(6).Add(col.New(12).Add(text.New(data.Office, props.Text{
			Size:  10,
			Align: align.Center,
			Color: colorSecondary,
		}))),
		row.New(7).Add(col.New(12).Add(text.New(data.Municipality, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Center,
			Color: colorPrimary,
		}))),
	}
}

func buildTitle(data CertificatePDFData) []core.Row {
	return []core.Row{
		row.New(12).Add(col.New(12).Add(text.New("LAND USE CERTIFICATE", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Center,
			Color: colorAccent,
		}))),
		row.New(6).Add(col.New(12).Add(text.New("No. "+data.CertificateNumber, props.Text{
			Size:  10,
			Align: align.Center,
			Color: colorSecondary,
		}))),
	}
}

func buildStatement(data CertificatePDFData) []core.Row {
	applicant := data.ApplicantName
	if data.CorporationName != "" {
		applicant += " on behalf of " + data.CorporationName
	}
	statement := fmt.Sprintf(
		"This is to certify that the project described below, applied for by %s, conforms with the land use and zoning regulations in force.",
		applicant,
	)
	return []core.Row{
		row.New(14).Add(col.New(12).Add(text.New(statement, props.Text{
			Size:  10.5,
			Color: colorPrimary,
		}))),
	}
}

func buildDetailsTable(data CertificatePDFData) []core.Row {
	details := [][2]string{
		{"Applicant address", data.ApplicantAddress},
		{"Project type", data.ProjectType},
		{"Nature of project", data.ProjectNature},
		{"Project location", data.ProjectLocation},
		{"Lot area", data.LotArea},
		{"Project cost", data.ProjectCost},
	}

	rows := make([]core.Row, 0, len(details))
	for _, d := range details {
		rows = append(rows, row.New(8).Add(
			col.New(4).Add(text.New(d[0], props.Text{Size: 9, Color: colorSecondary, Top: 2})),
			col.New(8).Add(text.New(d[1], props.Text{Size: 9, Style: fontstyle.Bold, Color: colorPrimary, Top: 2})),
		).WithStyle(&props.Cell{
			BorderType:  border.Bottom,
			BorderColor: colorBorder,
		}))
	}
	return rows
}

func buildSignatureBlock(data CertificatePDFData) []core.Row {
	qrCol := col.New(3)
	if data.VerificationURL != "" {
		qrCol.Add(code.NewQr(data.VerificationURL, props.Rect{Percent: 90, Center: true}))
	}

	return []core.Row{
		row.New(30).Add(
			qrCol,
			col.New(4),
			col.New(5).Add(
				text.New(data.SignatoryName, props.Text{
					Size:  10,
					Style: fontstyle.Bold,
					Align: align.Center,
					Color: colorPrimary,
					Top:   18,
				}),
				text.New(data.SignatoryTitle, props.Text{
					Size:  8.5,
					Align: align.Center,
					Color: colorSecondary,
					Top:   24,
				}),
			),
		),
		row.New(5).Add(
			col.New(3).Add(text.New("Scan to verify", props.Text{Size: 7, Align: align.Center, Color: colorSecondary})),
		),
	}
}
