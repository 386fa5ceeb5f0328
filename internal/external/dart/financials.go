package dart

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// ReportCode is the DART periodic report code (reprt_code)
type ReportCode string

const (
	ReportQ1     ReportCode = "11013" // 1분기보고서
	ReportHalf   ReportCode = "11012" // 반기보고서
	ReportQ3     ReportCode = "11014" // 3분기보고서
	ReportAnnual ReportCode = "11011" // 사업보고서
)

// AllReportCodes lists report codes in fiscal order
var AllReportCodes = []ReportCode{ReportQ1, ReportHalf, ReportQ3, ReportAnnual}

// Quarter returns the last quarter a report covers cumulatively
func (r ReportCode) Quarter() (int, error) {
	switch r {
	case ReportQ1:
		return 1, nil
	case ReportHalf:
		return 2, nil
	case ReportQ3:
		return 3, nil
	case ReportAnnual:
		return 4, nil
	}
	return 0, fmt.Errorf("unknown report code %q", string(r))
}

// FinancialResponse is the fnlttSinglAcnt.json response
type FinancialResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	List    []FinancialAccount `json:"list"`
}

// FinancialAccount is one line item of a single-company key account report
type FinancialAccount struct {
	RceptNo         string `json:"rcept_no"` // 접수번호 (앞 8자리 = 접수일)
	BsnsYear        string `json:"bsns_year"`
	StockCode       string `json:"stock_code"`
	ReprtCode       string `json:"reprt_code"`
	AccountNm       string `json:"account_nm"`
	FsDiv           string `json:"fs_div"` // CFS: 연결, OFS: 별도
	SjDiv           string `json:"sj_div"` // BS: 재무상태표, IS: 손익계산서
	ThstrmAmount    string `json:"thstrm_amount"`
	ThstrmAddAmount string `json:"thstrm_add_amount"` // 누적 금액 (분/반기)
}

// accountMetrics maps DART account names to metric names
var accountMetrics = map[string]string{
	"매출액":       contracts.MetricRevenue,
	"수익(매출액)":   contracts.MetricRevenue,
	"영업수익":      contracts.MetricRevenue,
	"매출원가":      contracts.MetricCostOfSales,
	"영업이익":      contracts.MetricOperatingProfit,
	"영업이익(손실)":  contracts.MetricOperatingProfit,
	"당기순이익":     contracts.MetricNetIncomeParent,
	"당기순이익(손실)": contracts.MetricNetIncomeParent,
	"법인세비용":     contracts.MetricIncomeTax,
}

// FetchFinancials fetches key accounts of one company for one report
// ⭐ SSOT: DART 재무제표 호출은 이 함수에서만
func (c *Client) FetchFinancials(ctx context.Context, corpCode string, year int, report ReportCode) ([]FinancialAccount, error) {
	q := url.Values{}
	q.Set("crtfc_key", c.apiKey)
	q.Set("corp_code", corpCode)
	q.Set("bsns_year", strconv.Itoa(year))
	q.Set("reprt_code", string(report))

	var result FinancialResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/api/fnlttSinglAcnt.json?"+q.Encode(), &result); err != nil {
		return nil, fmt.Errorf("fetch financials %s %d/%s: %w", corpCode, year, report, err)
	}

	// Status codes:
	// 000 = success
	// 013 = no data (ok)
	// others = error
	switch result.Status {
	case "000":
		return result.List, nil
	case "013":
		return nil, nil
	default:
		return nil, fmt.Errorf("API error: %s - %s", result.Status, result.Message)
	}
}

// ToRecord converts one report's accounts into a cumulative FormalReport record.
// 연결(CFS) 값이 있으면 연결, 없으면 별도(OFS). 반환값 nil은 매핑된 계정 없음.
func ToRecord(code string, year int, report ReportCode, accounts []FinancialAccount) (*contracts.DisclosureRecord, error) {
	quarter, err := report.Quarter()
	if err != nil {
		return nil, err
	}

	fsDiv := "OFS"
	for _, a := range accounts {
		if a.FsDiv == "CFS" {
			fsDiv = "CFS"
			break
		}
	}

	record := &contracts.DisclosureRecord{
		Code:      code,
		PeriodEnd: contracts.QuarterEnd(year, quarter),
		Source:    contracts.SourceFormalReport,
		Values:    make(map[string]float64),
	}

	for _, a := range accounts {
		if a.FsDiv != fsDiv || a.SjDiv != "IS" {
			continue
		}
		metric, ok := accountMetrics[strings.TrimSpace(a.AccountNm)]
		if !ok {
			continue
		}
		if _, dup := record.Values[metric]; dup {
			continue
		}

		// 분/반기 보고서는 thstrm_amount가 3개월 값, thstrm_add_amount가 누적값
		raw := a.ThstrmAmount
		if quarter != 4 && strings.TrimSpace(a.ThstrmAddAmount) != "" {
			raw = a.ThstrmAddAmount
		}
		record.Values[metric] = parseAmount(raw)

		if record.DisclosedAt.IsZero() {
			record.DisclosedAt, err = receiptDate(a.RceptNo)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(record.Values) == 0 {
		return nil, nil
	}
	return record, nil
}

// parseAmount parses "1,234,567" / "-1,234" / "(1,234)". 비수치는 NaN.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "-" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	if negative {
		v = -v
	}
	return v
}

// receiptDate extracts the filing date from a receipt number (YYYYMMDDnnnnnn)
func receiptDate(rceptNo string) (time.Time, error) {
	if len(rceptNo) < 8 {
		return time.Time{}, fmt.Errorf("invalid receipt number %q", rceptNo)
	}
	t, err := time.Parse("20060102", rceptNo[:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid receipt number %q: %w", rceptNo, err)
	}
	return t, nil
}

// GetDARTURL builds the DART disclosure URL
func GetDARTURL(rceptNo string) string {
	return "https://dart.fss.or.kr/dsaf001/main.do?rcpNo=" + rceptNo
}
