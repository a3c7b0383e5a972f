package compose

import (
	"fmt"
	"strings"
)

// ProgramSpecs classifies the program in the banner's specification block.
type ProgramSpecs struct {
	Type     string `json:"type"`
	Level    string `json:"level"`
	Category string `json:"category"`
	Heritage string `json:"heritage"`
}

// DefaultProgramSpecs returns the specification tuple used when a request
// does not supply one.
func DefaultProgramSpecs() ProgramSpecs {
	return ProgramSpecs{
		Type:     "macro",
		Level:    "global",
		Category: "Utility",
		Heritage: DefaultCompany,
	}
}

func (s ProgramSpecs) withDefaults() ProgramSpecs {
	d := DefaultProgramSpecs()
	if s.Type == "" {
		s.Type = d.Type
	}
	if s.Level == "" {
		s.Level = d.Level
	}
	if s.Category == "" {
		s.Category = d.Category
	}
	if s.Heritage == "" {
		s.Heritage = d.Heritage
	}
	return s
}

const bannerTemplate = `/****************************************************************************************
**                    Copyright: %s Company
*****************************************************************************************/
/****************************************************************************************
@Start

@Program Name:  %s
@Programmer:    %s
@Date:          %s
@Project:       %s
@Purpose:       %s

{Macro Called Example:
%s
}

{Program Specifications:
#Type/Level/Category/Heritage Company
[%s/%s/%s/%s]
}

{Functional Specifications:
@Input files:
@Output Produced:
@Macros called by:
@Macros Used: %s
}

{Macro Parameters:
#Parameter Name/Default/Description
%s
}

{Modification History:
#Date/Version/Programmer/Description
[%s/1/%s/Initial Version]
}

@End
****************************************************************************************/`

// bannerData collects everything the banner template interpolates.
type bannerData struct {
	Company    string
	Program    string
	Programmer string
	Date       string // YYYY-MM-DD
	Project    string
	Purpose    string
	Example    string
	Specs      ProgramSpecs
	MacroCalls []string   // %-prefixed, deduplicated
	Params     [][]string // name/default/description rows
}

// buildBanner renders the fixed program header block.
func buildBanner(d bannerData) string {
	specs := d.Specs.withDefaults()
	return fmt.Sprintf(bannerTemplate,
		d.Company,
		d.Program,
		d.Programmer,
		d.Date,
		d.Project,
		d.Purpose,
		d.Example,
		specs.Type, specs.Level, specs.Category, specs.Heritage,
		strings.Join(d.MacroCalls, ", "),
		parameterLines(d.Params),
		d.Date,
		d.Programmer,
	)
}

// parameterLines renders one bracketed name/default/description line per
// parameter.
func parameterLines(rows [][]string) string {
	if len(rows) == 0 {
		return "No parameters"
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = fmt.Sprintf("[%s/%s/%s]", row[0], row[1], row[2])
	}
	return strings.Join(lines, "\n")
}
