package i18n

var zhCN = map[string]string{
	"common.success": "成功",

	"error.bad_request":       "请求参数错误",
	"error.unauthorized":      "未登录或登录已过期",
	"error.forbidden":         "无权限访问",
	"error.not_found":         "资源不存在",
	"error.too_many_requests": "请求过于频繁，请稍后再试",
	"error.internal_error":    "服务器内部错误",

	"error.user_id_invalid":        "用户标识无效",
	"error.user_id_type_invalid":   "用户标识类型错误",
	"error.auth_header_missing":    "缺少 Authorization 请求头",
	"error.auth_header_invalid":    "Authorization 格式错误",
	"error.token_invalid":          "登录凭证无效",
	"error.token_revoked":          "登录凭证已失效，请重新登录",
	"error.jwt_secret_missing":     "服务未配置签名密钥",
	"error.rate_limited":           "操作过于频繁，请 %d 秒后再试",
	"error.login_too_many":         "登录尝试过多，请 %d 秒后再试",
	"error.rate_limit_unavailable": "限流服务不可用",
	"error.email_invalid":          "邮箱格式错误",
	"error.points_action_invalid":  "积分动作无效",

	"error.email_exists":        "邮箱已被注册",
	"error.invalid_credentials": "邮箱或密码错误",
	"error.user_disabled":       "账号已被禁用",
	"error.user_not_found":      "用户不存在",
	"error.password_too_short":  "密码长度不足",

	"error.points_insufficient":    "积分不足",
	"error.points_invalid_amount":  "积分数值无效",
	"error.points_duplicate_award": "该奖励已发放",

	"error.referral_code_invalid":       "推荐码无效",
	"error.self_referral":               "不能使用自己的推荐码",
	"error.already_referred":            "该用户已被推荐过",
	"error.referral_transition_invalid": "推荐状态流转无效",

	"error.coupon_not_found":           "优惠券不存在",
	"error.coupon_not_active":          "优惠券未上架",
	"error.coupon_out_of_window":       "不在优惠券领取时间内",
	"error.coupon_limit_reached":       "优惠券已领完",
	"error.coupon_per_user_limit":      "已达到每人领取上限",
	"error.coupon_condition_not_met":   "未满足领取条件",
	"error.coupon_not_claimable":       "优惠券当前不可用",
	"error.coupon_invalid_or_expired":  "优惠券无效或已过期",
	"error.coupon_wrong_restaurant":    "该优惠券不适用于本餐厅",
	"error.staff_not_authorized":       "非本餐厅员工，无权操作",
	"error.coupon_validity_required":   "总量上限与有效期至少设置一项",
	"error.coupon_type_invalid":        "优惠券类型无效",
	"error.coupon_reward_invalid":      "优惠内容配置无效",
	"error.coupon_condition_invalid":   "领取条件配置无效",
	"error.coupon_scope_invalid":       "优惠券适用范围无效",
	"error.coupon_window_invalid":      "优惠券有效期配置无效",
	"error.coupon_limit_below_claimed": "总量上限不能低于已领取数量",
	"error.coupon_status_invalid":      "优惠券状态流转无效",

	"error.restaurant_not_found":   "餐厅不存在",
	"error.visit_duplicate":        "本次到店已记录",
	"error.review_duplicate":       "该餐厅已点评过",
	"error.visit_token_invalid":    "到店码无效或已过期",
	"error.review_visit_required":  "到店后才能点评",
	"error.review_content_invalid": "点评内容为空或过长",
	"error.review_photos_invalid":  "点评图片地址无效或数量超限",

	"error.captcha_required":    "请输入验证码",
	"error.captcha_invalid":     "验证码错误或已过期",
	"error.captcha_unavailable": "验证码服务未启用",

	"condition.met":                          "已满足领取条件",
	"condition.points_at_least":              "还需 %d 积分",
	"condition.referrals_at_least":           "还需成功邀请 %d 位好友",
	"condition.visits_same_restaurant":       "还需到访该餐厅 %d 次",
	"condition.visits_different_restaurants": "还需到访 %d 家不同餐厅",
	"condition.visits_cities":                "还需在 %d 个不同城市用餐",
	"condition.unknown":                      "未知的领取条件",

	"notify.points_awarded":   "积分变动 %d，当前余额 %d",
	"notify.referral_bonus":   "获得推荐奖励 %d 积分，当前余额 %d",
	"notify.coupon_claimed":   "已领取优惠券 #%d",
	"notify.coupon_redeemed":  "优惠券 #%d 已在餐厅 #%d 核销",
	"notify.referral_applied": "推荐关系已建立",
}

var enUS = map[string]string{
	"common.success": "success",

	"error.bad_request":       "invalid request",
	"error.unauthorized":      "not logged in or session expired",
	"error.forbidden":         "forbidden",
	"error.not_found":         "not found",
	"error.too_many_requests": "too many requests, please retry later",
	"error.internal_error":    "internal server error",

	"error.user_id_invalid":        "invalid user id",
	"error.user_id_type_invalid":   "invalid user id type",
	"error.auth_header_missing":    "missing Authorization header",
	"error.auth_header_invalid":    "malformed Authorization header",
	"error.token_invalid":          "invalid token",
	"error.token_revoked":          "token revoked, please log in again",
	"error.jwt_secret_missing":     "signing secret not configured",
	"error.rate_limited":           "too many requests, retry in %d seconds",
	"error.login_too_many":         "too many login attempts, retry in %d seconds",
	"error.rate_limit_unavailable": "rate limiter unavailable",
	"error.email_invalid":          "invalid email",
	"error.points_action_invalid":  "invalid points action",

	"error.email_exists":        "email already registered",
	"error.invalid_credentials": "invalid email or password",
	"error.user_disabled":       "account disabled",
	"error.user_not_found":      "user not found",
	"error.password_too_short":  "password too short",

	"error.points_insufficient":    "insufficient points",
	"error.points_invalid_amount":  "invalid points amount",
	"error.points_duplicate_award": "reward already granted",

	"error.referral_code_invalid":       "invalid referral code",
	"error.self_referral":               "you cannot use your own referral code",
	"error.already_referred":            "user has already been referred",
	"error.referral_transition_invalid": "invalid referral transition",

	"error.coupon_not_found":           "coupon not found",
	"error.coupon_not_active":          "coupon is not active",
	"error.coupon_out_of_window":       "coupon is outside its claim window",
	"error.coupon_limit_reached":       "coupon is fully claimed",
	"error.coupon_per_user_limit":      "per-user claim limit reached",
	"error.coupon_condition_not_met":   "claim condition not met",
	"error.coupon_not_claimable":       "coupon is not usable",
	"error.coupon_invalid_or_expired":  "coupon is invalid or expired",
	"error.coupon_wrong_restaurant":    "coupon is not valid at this restaurant",
	"error.staff_not_authorized":       "only staff of this restaurant can do this",
	"error.coupon_validity_required":   "a total limit or a validity window is required",
	"error.coupon_type_invalid":        "invalid coupon type",
	"error.coupon_reward_invalid":      "invalid coupon reward",
	"error.coupon_condition_invalid":   "invalid claim condition",
	"error.coupon_scope_invalid":       "invalid coupon scope",
	"error.coupon_window_invalid":      "invalid validity window",
	"error.coupon_limit_below_claimed": "total limit cannot be lower than claimed count",
	"error.coupon_status_invalid":      "invalid coupon status transition",

	"error.restaurant_not_found":   "restaurant not found",
	"error.visit_duplicate":        "visit already recorded",
	"error.review_duplicate":       "restaurant already reviewed",
	"error.visit_token_invalid":    "visit code invalid or expired",
	"error.review_visit_required":  "visit the restaurant before reviewing it",
	"error.review_content_invalid": "review content empty or too long",
	"error.review_photos_invalid":  "review photo urls invalid or too many",

	"error.captcha_required":    "captcha required",
	"error.captcha_invalid":     "captcha invalid or expired",
	"error.captcha_unavailable": "captcha not enabled",

	"condition.met":                          "eligible to claim",
	"condition.points_at_least":              "Earn %d more points",
	"condition.referrals_at_least":           "Refer %d more friends",
	"condition.visits_same_restaurant":       "Visit this restaurant %d more times",
	"condition.visits_different_restaurants": "Visit %d more different restaurants",
	"condition.visits_cities":                "Dine in %d more different cities",
	"condition.unknown":                      "Unknown condition",

	"notify.points_awarded":   "Points changed by %d, balance now %d",
	"notify.referral_bonus":   "Referral bonus of %d points, balance now %d",
	"notify.coupon_claimed":   "Coupon #%d claimed",
	"notify.coupon_redeemed":  "Coupon #%d redeemed at restaurant #%d",
	"notify.referral_applied": "Referral registered",
}
