package openaicompat

import (
	"fmt"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

func buildKeywordPrompt(question string) string {
	return fmt.Sprintf(`
다음은 문서 검색용 키워드를 생성하는 작업이야.
절대 설명하지 말고, 쉼표로 구분된 키워드 목록만 생성해.

규칙:
- 질문에 명시된 연도가 있을 때만 포함해. 없으면 연도는 절대 넣지 마.
- 연도는 항상 4자리 숫자 (예: '23년도' → '2023')
- 월,일이 들어가면 앞에 숫자만 추출해줘
- HTML 태그, 특수문자, 개행문자(\n), 따옴표 등은 절대 포함하지 마
- 출력은 예: 키워드1, 키워드2, 키워드3 형식이어야 함

질문: %s

키워드:`, question)
}

func buildSummaryPrompt(b domain.IncidentBrief) string {
	return fmt.Sprintf(`
다음은 %s 점포에서 발생한 장애 내역입니다.
현장 엔지니어가 상급 관리자에게 구두로 보고하듯, 자연스럽고 간결한 스토리텔링 형식으로 정리해 주세요.

조건:
- "요약"이라는 단어를 사용하지 말 것
- 세 문장 이내로 간결하게 작성
- 장애 발생 → 원인 → 조치/결과 순서로 기술
- 긴급도(A~C)는 문맥에 녹여 자연스럽게 반영할 것
- 숫자, 코드명(VKV47 등)은 정확하게 유지할 것
- 장애 원인과 처리 결과만 간결하게 2~3문장으로 정리
- 사실 근거가 없는 추론 문장은 작성하지 말 것

날짜: %s
점포명: %s
장애유형: %s > %s > %s
OCS 원인:
  - 대분류: %s
  - 중분류: %s
  - 소분류: %s
처리부서: %s
긴급도: %s

[본문]
%s
`,
		b.StoreName,
		b.Date,
		b.StoreName,
		b.FaultMajor, b.FaultMid, b.FaultMinor,
		b.OCSCauseMajor,
		b.OCSCauseMid,
		b.OCSCauseMinor,
		b.DepartmentMain,
		b.Urgency,
		b.Content,
	)
}
