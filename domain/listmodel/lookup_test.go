package listmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLookup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *Lookup
		wantErr  bool
	}{
		{name: "list_delimiter", input: "3;#Project X", expected: &Lookup{LookupID: 3, LookupValue: "Project X"}},
		{name: "short_form", input: "3,#Project X", expected: &Lookup{LookupID: 3, LookupValue: "Project X"}},
		{name: "id_only", input: "7", expected: &Lookup{LookupID: 7}},
		{name: "empty", input: "", wantErr: true},
		{name: "non_numeric_id", input: "abc;#value", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseLookup(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseUser_ExpandedSubRecord(t *testing.T) {
	// Act
	user, err := ParseUser("12;#Doe,, Jane,#i:0#.f|membership|jane@contoso.com,#jane@contoso.com,#sip:jane@contoso.com,#Lead,, Platform")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 12, user.LookupID)
	assert.Equal(t, "Doe, Jane", user.LookupValue)
	assert.Equal(t, "i:0#.f|membership|jane@contoso.com", user.LoginName)
	assert.Equal(t, "jane@contoso.com", user.Email)
	assert.Equal(t, "sip:jane@contoso.com", user.SIPAddress)
	assert.Equal(t, "Lead, Platform", user.Title)
}

func TestParseUser_PlainValueKeepsCommas(t *testing.T) {
	user, err := ParseUser("4;#Smith,, John")

	require.NoError(t, err)
	assert.Equal(t, "Smith,, John", user.LookupValue)
	assert.Empty(t, user.LoginName)
}

func TestParseUserMulti_ShortForm(t *testing.T) {
	// Act
	users, err := ParseUserMulti("1,#Alice;#2,#Bob")

	// Assert
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, 1, users[0].LookupID)
	assert.Equal(t, "Alice", users[0].LookupValue)
	assert.Equal(t, 2, users[1].LookupID)
	assert.Equal(t, "Bob", users[1].LookupValue)
}

func TestParseLookupMulti_PairedForm(t *testing.T) {
	lookups, err := ParseLookupMulti("1;#Alpha;#2;#Beta;#3;#Gamma")

	require.NoError(t, err)
	assert.Equal(t, []*Lookup{
		{LookupID: 1, LookupValue: "Alpha"},
		{LookupID: 2, LookupValue: "Beta"},
		{LookupID: 3, LookupValue: "Gamma"},
	}, lookups)
}

func TestParseLookupMulti_Empty(t *testing.T) {
	lookups, err := ParseLookupMulti("")

	require.NoError(t, err)
	assert.Empty(t, lookups)
}

func TestParseMultiChoice(t *testing.T) {
	assert.Equal(t, []string{"Red", "Blue"}, ParseMultiChoice(";#Red;#Blue;#"))
	assert.Equal(t, []string{}, ParseMultiChoice(""))
}

func TestLookup_String(t *testing.T) {
	assert.Equal(t, "5;#Five", (&Lookup{LookupID: 5, LookupValue: "Five"}).String())
	assert.Equal(t, "9;#Jane", (&User{LookupID: 9, LookupValue: "Jane", Email: "jane@contoso.com"}).String())
}
