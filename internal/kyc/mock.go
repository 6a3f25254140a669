// mock.go - Mock passport generation for local runs and tests.
//
// Generates realistic ICAO-style passport data so the protocol can be
// exercised without an NFC document reader. Irish and Canadian passports
// only, matching the demo data set.

package kyc

import (
	"fmt"
	"math/rand"
	"time"
)

var mockCountries = []string{"IRL", "CAN"}

var irlSurnames = []string{"MURPHY", "KELLY", "O'BRIEN", "WALSH", "RYAN", "BYRNE", "O'SULLIVAN", "MCCARTHY", "DOYLE", "KENNEDY", "LYNCH", "MURRAY", "QUINN", "MOORE", "COLLINS", "DUNNE", "BRENNAN", "BURKE"}
var irlGivenNames = []string{"JAMES", "MARY", "JOHN", "PATRICIA", "MICHAEL", "CATHERINE", "SEAN", "AOIFE", "CONOR", "CIARA", "LIAM", "SINEAD", "CIAN", "NIAMH", "DANIEL", "EMMA", "DARRAGH", "GRAINNE", "FINN", "ORLA"}

var canSurnames = []string{"SMITH", "JOHNSON", "WILLIAMS", "BROWN", "JONES", "GARCIA", "MILLER", "DAVIS", "RODRIGUEZ", "MARTINEZ", "WILSON", "ANDERSON", "THOMAS", "TAYLOR", "MOORE", "JACKSON", "MARTIN", "LEE", "THOMPSON", "WHITE"}
var canGivenNames = []string{"JAMES", "MARY", "JOHN", "PATRICIA", "ROBERT", "JENNIFER", "MICHAEL", "LINDA", "WILLIAM", "ELIZABETH", "DAVID", "BARBARA", "RICHARD", "SUSAN", "JOSEPH", "JESSICA", "THOMAS", "SARAH", "CHARLES", "KAREN"}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const digits = "0123456789"

// GenerateMockPassport produces a random, structurally valid passport with a
// holder aged 18-90 and an expiry date 1-10 years in the future.
func GenerateMockPassport() Document {
	now := time.Now()
	dob := randomDate(now.AddDate(-90, 0, 0), now.AddDate(-18, 0, 0))
	expiry := randomDate(now.AddDate(1, 0, 0), now.AddDate(10, 0, 0))

	country := mockCountries[rand.Intn(len(mockCountries))]
	surnames, givenNames := canSurnames, canGivenNames
	if country == "IRL" {
		surnames, givenNames = irlSurnames, irlGivenNames
	}

	// IRL: 9 alphanumeric; CAN: 2 letters + 7 digits.
	var number string
	if country == "IRL" {
		number = randomString(9, alphanumeric)
	} else {
		number = randomString(2, letters) + randomString(7, digits)
	}

	sexes := []string{"M", "F", "X"}
	return Document{
		DocumentType:   "P",
		IssuingCountry: country,
		PassportNumber: number,
		Surname:        surnames[rand.Intn(len(surnames))],
		GivenNames:     givenNames[rand.Intn(len(givenNames))],
		Nationality:    country,
		DateOfBirth:    dob,
		Sex:            sexes[rand.Intn(len(sexes))],
		ExpiryDate:     expiry,
	}
}

func randomDate(start, end time.Time) string {
	span := end.Unix() - start.Unix()
	d := time.Unix(start.Unix()+rand.Int63n(span), 0)
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}

func randomString(n int, chars string) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}
