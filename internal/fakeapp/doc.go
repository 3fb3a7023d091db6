// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package fakeapp 提供一个与被测信用管理应用 UI 一致的本地替身。

前端是内嵌的单页应用，后端是 JSON API：

  - POST /api/login 校验账号，签发一次性 OTP，并返回
    "Your OTP is: <code>" 提示文本，由前端 alert 弹出。
  - POST /api/otp 校验 OTP，签发 HS256 会话 JWT。
  - GET/POST /api/cheques 列出与保存支票，到期分组与 LKR 金额文本
    由服务端使用 scenario.Classify 与 scenario.FormatLKR 计算。

登录与 OTP 校验按来源 IP 限流。Options 中的 SuppressOTPDialog 与
HideOTPField 用于复现 OTP 弹窗缺失、输入框缺失两类故障。
*/
package fakeapp
