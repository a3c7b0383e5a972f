package sas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindoc/sasdoc/sas"
)

const sampleMacro = `%macro report_gen(indata=work.raw, outlib=, debug);
    %let start = %sysfunc(datetime());
    data _null_;
        set work.config;
    run;
    data outlib.summary;
        set indata.records;
        where flag = 1;
    run;
    proc sql;
        create table outlib.totals as
        select * from indata.records;
    quit;
    proc print data=outlib.summary;
    run;
    %cleanup(lib=outlib);
%mend report_gen;`

func TestExtractMacroName(t *testing.T) {
	name, ok := sas.ExtractMacroName(sampleMacro)
	require.True(t, ok)
	assert.Equal(t, "report_gen", name)
}

func TestExtractMacroNameCaseInsensitive(t *testing.T) {
	name, ok := sas.ExtractMacroName("%MACRO LoadData;\n%mend;")
	require.True(t, ok)
	assert.Equal(t, "LoadData", name)
}

func TestExtractMacroNameMissing(t *testing.T) {
	_, ok := sas.ExtractMacroName("data work.x; set work.y; run;")
	assert.False(t, ok)
}

func TestExtractParameters(t *testing.T) {
	params := sas.ExtractParameters(sampleMacro)
	require.Len(t, params, 3)

	assert.Equal(t, sas.Parameter{Name: "indata", Default: "work.raw"}, params[0])
	assert.Equal(t, sas.Parameter{Name: "outlib", Default: "None"}, params[1])
	assert.Equal(t, sas.Parameter{Name: "debug", Default: "None"}, params[2])
}

func TestExtractParametersTable(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []sas.Parameter
	}{
		{
			name: "mixed defaults",
			src:  "%macro m(p1=a, p2, p3=c);",
			want: []sas.Parameter{
				{Name: "p1", Default: "a"},
				{Name: "p2", Default: "None"},
				{Name: "p3", Default: "c"},
			},
		},
		{
			name: "no parameter list",
			src:  "%macro bare;\n%mend;",
			want: nil,
		},
		{
			name: "empty parameter list",
			src:  "%macro empty();",
			want: nil,
		},
		{
			name: "empty default becomes sentinel",
			src:  "%macro m(p=);",
			want: []sas.Parameter{{Name: "p", Default: "None"}},
		},
		{
			name: "comma inside parentheses does not split",
			src:  "%macro m(sep=%str(a,b), other=1);",
			want: []sas.Parameter{
				{Name: "sep", Default: "%str(a,b)"},
				{Name: "other", Default: "1"},
			},
		},
		{
			name: "multiline signature",
			src:  "%macro m(\n  first=1,\n  second\n);",
			want: []sas.Parameter{
				{Name: "first", Default: "1"},
				{Name: "second", Default: "None"},
			},
		},
		{
			name: "only first signature wins",
			src:  "%macro outer(a=1); %macro inner(b=2); %mend; %mend;",
			want: []sas.Parameter{{Name: "a", Default: "1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sas.ExtractParameters(tt.src))
		})
	}
}

func TestFindMacroCalls(t *testing.T) {
	calls := sas.FindMacroCalls(sampleMacro)
	// %sysfunc and %str-style builtins match the call shape too; the
	// declaration line itself must not.
	assert.Contains(t, calls, "%cleanup")
	assert.Contains(t, calls, "%sysfunc")
	assert.NotContains(t, calls, "%report_gen")
	assert.NotContains(t, calls, "%macro")
}

func TestFindMacroCallsDeduplicates(t *testing.T) {
	src := "%check(a) %check(b) %other(c)"
	assert.Equal(t, []string{"%check", "%other"}, sas.FindMacroCalls(src))
}

func TestDataSourcesAndOutputs(t *testing.T) {
	assert.Equal(t, []string{"work.config", "indata.records"}, sas.DataSources(sampleMacro))
	assert.Equal(t, []string{"outlib.summary"}, sas.DataOutputs(sampleMacro))
}

func TestDataSourcesRequireTwoLevelNames(t *testing.T) {
	src := "data out; set raw; run;"
	assert.Empty(t, sas.DataSources(src))
	assert.Empty(t, sas.DataOutputs(src))
}

func TestAnalyzeStructure(t *testing.T) {
	s := sas.AnalyzeStructure(sampleMacro)

	// data _null_ is excluded from the count.
	assert.Equal(t, 1, s.DataSteps)
	assert.Equal(t, 2, s.ProcSteps)
	assert.Equal(t, []string{"work.config", "indata.records"}, s.DataSources)
	assert.Equal(t, []string{"outlib.summary"}, s.DataOutputs)
	assert.Contains(t, s.MacroCalls, "%cleanup")
}

func TestAnalyzeStructureNullOnly(t *testing.T) {
	src := "data _null_;\n  put 'hi';\nrun;\nDATA _NULL_;\nrun;"
	s := sas.AnalyzeStructure(src)
	assert.Equal(t, 0, s.DataSteps)
}

func TestAnalyzeStructureLineAnchored(t *testing.T) {
	// "data" mid-line (as in a comment or string) is not a step opening.
	src := "proc sql; create table x as select data from work.t; quit;"
	s := sas.AnalyzeStructure(src)
	assert.Equal(t, 0, s.DataSteps)
	assert.Equal(t, 1, s.ProcSteps)
}
