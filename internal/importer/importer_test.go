package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestOFXParser_Parse(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{name: "valid bank statement", ofxData: sampleBankOFX, expectedCount: 3},
		{name: "valid credit card statement", ofxData: sampleCreditCardOFX, expectedCount: 2},
		{name: "invalid OFX data", ofxData: "not valid OFX", expectedError: true},
		{name: "empty OFX", ofxData: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := NewOFXParser().Parse(context.Background(), strings.NewReader(tt.ofxData))
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, txns, tt.expectedCount)
		})
	}
}

func TestOFXParser_KeepsSignAndLeavesUnlabeled(t *testing.T) {
	txns, err := NewOFXParser().Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, txns, 3)

	assert.Equal(t, "STARBUCKS STORE #1234", txns[0].Description)
	assert.Equal(t, -25.50, txns[0].Amount)
	assert.Equal(t, 2024, txns[0].Date.Year())
	assert.Equal(t, time.January, txns[0].Date.Month())
	assert.Equal(t, 15, txns[0].Date.Day())
	assert.Empty(t, txns[0].Category)

	assert.Equal(t, "Whole Foods Market", txns[1].Description)
	assert.Equal(t, -125.00, txns[1].Amount)
	assert.Equal(t, -500.00, txns[2].Amount)
}

func TestOFXParser_ExtractMerchantName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		memo     string
		expected string
	}{
		{name: "remove POS prefix", input: "POS PURCHASE STARBUCKS", expected: "STARBUCKS"},
		{name: "remove DEBIT CARD prefix", input: "DEBIT CARD PURCHASE WHOLE FOODS", expected: "WHOLE FOODS"},
		{name: "keep clean name", input: "NETFLIX.COM", expected: "NETFLIX.COM"},
		{name: "trim whitespace", input: "  AMAZON.COM  ", expected: "AMAZON.COM"},
		{name: "strip posting date", input: "01/15 SHELL OIL", expected: "SHELL OIL"},
		{name: "generic name falls back to memo", input: "DEBIT", memo: "CITY PARKING", expected: "CITY PARKING"},
	}

	parser := NewOFXParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{Name: ofxgo.String(tt.input), Memo: ofxgo.String(tt.memo)}
			assert.Equal(t, tt.expected, parser.extractMerchantName(tx))
		})
	}
}

func TestJSONParser(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{
			name:  "bare array",
			input: `[{"description":"Coffee","amount":-4.5,"date":"2024-01-02T08:00:00Z","category":"Food"},{"description":"Bus","amount":-2}]`,
			want:  2,
		},
		{
			name:  "wrapped object",
			input: `{"transactions":[{"description":"Rent","amount":-1200,"date":"2024-02-01","category":null}]}`,
			want:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := (&JSONParser{}).Parse(context.Background(), strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Len(t, txns, tt.want)
		})
	}

	txns, err := (&JSONParser{}).Parse(context.Background(), strings.NewReader(tests[0].input))
	require.NoError(t, err)
	assert.Equal(t, "Food", txns[0].Category)
	assert.Equal(t, 8, txns[0].Date.Hour())
	assert.True(t, txns[1].Date.IsZero())
	assert.Empty(t, txns[1].Category)

	_, err = (&JSONParser{}).Parse(context.Background(), strings.NewReader(`{"nope":`))
	assert.Error(t, err)
	_, err = (&JSONParser{}).Parse(context.Background(), strings.NewReader(`[{"description":"x","amount":1,"date":"yesterday"}]`))
	assert.Error(t, err)
}

func TestCSVParser(t *testing.T) {
	input := "Date,Amount,Description,Category\n" +
		"2024-01-02,-4.50,Coffee,Food\n" +
		"01/03/2024,-30,\"Gas, Shell\",Transportation\n" +
		",-12,No date,\n"

	txns, err := (&CSVParser{}).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 3)

	assert.Equal(t, "Coffee", txns[0].Description)
	assert.Equal(t, -4.5, txns[0].Amount)
	assert.Equal(t, "Food", txns[0].Category)
	assert.Equal(t, "Gas, Shell", txns[1].Description)
	assert.Equal(t, 3, txns[1].Date.Day())
	assert.True(t, txns[2].Date.IsZero())
	assert.Empty(t, txns[2].Category)
}

func TestCSVParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "missing amount column", input: "description,date\nCoffee,2024-01-01\n"},
		{name: "missing description column", input: "amount\n1\n"},
		{name: "bad amount", input: "description,amount\nCoffee,abc\n"},
		{name: "bad date", input: "description,amount,date\nCoffee,1,someday\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&CSVParser{}).Parse(context.Background(), strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"data.json":      FormatJSON,
		"EXPORT.CSV":     FormatCSV,
		"bank.ofx":       FormatOFX,
		"card.QFX":       FormatOFX,
		"statement.xlsx": "",
		"no-extension":   "",
	}

	for path, want := range tests {
		got, err := DetectFormat(path)
		if want == "" {
			assert.ErrorIs(t, err, ErrUnsupportedFormat, path)
			continue
		}
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}

func TestLoadFiles_Dedupes(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "a.json")
	csvPath := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"description":"Coffee","amount":-4.5,"date":"2024-01-02"}]`), 0o600))
	require.NoError(t, os.WriteFile(csvPath, []byte("description,amount,date\nCoffee,-4.5,2024-01-02\nTea,-3,2024-01-02\n"), 0o600))

	txns, err := LoadFiles(context.Background(), jsonPath, csvPath)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "Coffee", txns[0].Description)
	assert.Equal(t, "Tea", txns[1].Description)

	_, err = LoadFiles(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-30T14:05:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 14, d.Hour())

	d, err = ParseDate("  ")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("30.06.2024")
	assert.Error(t, err)
}
