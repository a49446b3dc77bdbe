package integration_tests

import (
	"strings"
	"time"
	"tradejournal/cmd"

	"github.com/golang-jwt/jwt"
)

const testJwtSecret = "integration-test-secret"

// first full week of 2024. an empty date is a live quote. KO goes ex
// dividend on the 4th
const sampleMarketDataCSV = `date,symbol,price,dividend
2024-01-02,AAPL,100,
2024-01-03,AAPL,102,
2024-01-04,AAPL,104,
2024-01-05,AAPL,106,
,AAPL,110,
2024-01-02,KO,60,
2024-01-03,KO,60,
2024-01-04,KO,60,0.5
2024-01-05,KO,60,
`

func NewSampleMarketData() (*cmd.FixedMarketData, error) {
	return cmd.LoadFixedMarketData(strings.NewReader(sampleMarketDataCSV))
}

// SignTestToken mints an HS256 token the api accepts for userID
func SignTestToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"aud":  "authenticated",
		"role": "authenticated",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString([]byte(testJwtSecret))
}
