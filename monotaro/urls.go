package monotaro

import (
	"fmt"

	"github.com/kimata/mohist/models"
)

const (
	historyPath = "/monotaroMain.py?func=monotaro.orderHistory.showListServlet.ShowListServlet"
	detailPath  = "/monotaroMain.py?func=monotaro.orderHistory.showReadServlet.ShowReadServlet"
	loginPath   = "/monotaroMain.py?func=monotaro.login.loginServlet.LoginServlet"
)

func historyURL(base string) string {
	return base + historyPath
}

func historyMonthURL(base string, p models.Period) string {
	return fmt.Sprintf("%s%s&targetMonth=%04d-%02d", base, historyPath, p.Year, int(p.Month))
}

func orderDetailURL(base, linkNo string) string {
	return fmt.Sprintf("%s%s&recvOrderNo=%s", base, detailPath, linkNo)
}

func loginURL(base string) string {
	return base + loginPath
}
